// Package entities registers every maintenance entity kind with the core
// registry. Import it for side effects:
//
//	import _ "github.com/JonMunkholm/maintrack/internal/core/entities"
package entities

// Each file registers its kinds from init().
