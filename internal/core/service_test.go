package core_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/maintrack/internal/core"
	"github.com/JonMunkholm/maintrack/internal/storage/memstore"
)

func TestMain(m *testing.M) {
	core.Register(core.EntityDefinition{
		Kind:   "customers",
		Label:  "Customer",
		Plural: "customers",
		Prefix: "CUST",
		FieldSpecs: []core.FieldSpec{
			{Name: "name", Type: core.FieldText, Required: true},
			{Name: "email", Type: core.FieldText},
			{Name: "creditLimit", Type: core.FieldNumeric},
		},
	})
	core.Register(core.EntityDefinition{
		Kind:   "leases",
		Label:  "Lease",
		Plural: "leases",
		Prefix: "LSE",
		FieldSpecs: []core.FieldSpec{
			{Name: "customerId", Type: core.FieldText, Required: true, Ref: "customers"},
			{Name: "startDate", Type: core.FieldDate, Required: true},
			{Name: "endDate", Type: core.FieldDate},
		},
		Check: func(f core.Fields) error {
			start, _ := f["startDate"].(string)
			end, _ := f["endDate"].(string)
			if end != "" && end < start {
				return core.FieldErrors{{Field: "endDate", Message: "ends before it starts"}}
			}
			return nil
		},
	})
	os.Exit(m.Run())
}

// faultyStore wraps memstore to inject failures.
type faultyStore struct {
	*memstore.Store

	mu              sync.Mutex
	createFailures  int             // Create returns a duplicate error this many times
	upsertFailIDs   map[string]bool // Upsert fails for these ids
	staleSnapshot   bool            // LastIdentifier always reports no rows
	raiseErr        error           // RaiseSequence fails with this, when set
	bypassSequence  bool            // ClaimSequence returns floor unchanged
	upsertGate      chan struct{}   // Upsert blocks until closed, when set
	upsertEntered   chan struct{}
	createAttempted []string
}

func newFaultyStore() *faultyStore {
	return &faultyStore{Store: memstore.New(), upsertFailIDs: map[string]bool{}}
}

func (f *faultyStore) Create(ctx context.Context, e *core.Entity) error {
	f.mu.Lock()
	f.createAttempted = append(f.createAttempted, e.ID)
	fail := f.createFailures > 0
	if fail {
		f.createFailures--
	}
	f.mu.Unlock()

	if fail {
		return core.ErrDuplicateIdentifier
	}
	return f.Store.Create(ctx, e)
}

func (f *faultyStore) Upsert(ctx context.Context, e *core.Entity) (bool, error) {
	if f.upsertGate != nil {
		select {
		case f.upsertEntered <- struct{}{}:
		default:
		}
		<-f.upsertGate
	}
	if f.upsertFailIDs[e.ID] {
		return false, errors.New("violates check constraint \"entities_fields_check\"")
	}
	return f.Store.Upsert(ctx, e)
}

func (f *faultyStore) LastIdentifier(ctx context.Context, kind, prefix string) (string, error) {
	if f.staleSnapshot {
		return "", nil
	}
	return f.Store.LastIdentifier(ctx, kind, prefix)
}

func (f *faultyStore) ClaimSequence(ctx context.Context, prefix string, floor int64) (int64, error) {
	if f.bypassSequence {
		return floor, nil
	}
	return f.Store.ClaimSequence(ctx, prefix, floor)
}

func (f *faultyStore) RaiseSequence(ctx context.Context, prefix string, n int64) error {
	if f.raiseErr != nil {
		return f.raiseErr
	}
	return f.Store.RaiseSequence(ctx, prefix, n)
}

type countingMetrics struct {
	mu         sync.Mutex
	allocated  int
	collisions int
	imports    int
}

func (m *countingMetrics) ObserveImport(string, int, int, time.Duration) {
	m.mu.Lock()
	m.imports++
	m.mu.Unlock()
}

func (m *countingMetrics) IdentifierAllocated(string) {
	m.mu.Lock()
	m.allocated++
	m.mu.Unlock()
}

func (m *countingMetrics) IdentifierCollision(string) {
	m.mu.Lock()
	m.collisions++
	m.mu.Unlock()
}

func newService(t *testing.T, store core.Store, opts core.Options) *core.Service {
	t.Helper()
	return core.NewService(store, opts)
}

// ----------------------------------------------------------------------------
// Create / allocation
// ----------------------------------------------------------------------------

func TestCreate_AllocatesSequentialIdentifiers(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, memstore.New(), core.Options{})

	first, err := svc.Create(ctx, "customers", core.Record{"id": "HACK999", "name": "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "CUST001", first.ID, "client-supplied id is ignored")

	second, err := svc.Create(ctx, "customers", core.Record{"name": "Globex"})
	require.NoError(t, err)
	assert.Equal(t, "CUST002", second.ID)
}

func TestCreate_NeverReusesDeletedIdentifier(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, memstore.New(), core.Options{})

	e, err := svc.Create(ctx, "customers", core.Record{"name": "Acme"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "customers", e.ID))

	next, err := svc.Create(ctx, "customers", core.Record{"name": "Globex"})
	require.NoError(t, err)
	assert.Equal(t, "CUST002", next.ID)
}

func TestCreate_WidensPastWidth(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	_, err := store.Upsert(ctx, &core.Entity{Kind: "customers", ID: "CUST999", Fields: core.Fields{"name": "x"}})
	require.NoError(t, err)

	svc := newService(t, store, core.Options{})
	e, err := svc.Create(ctx, "customers", core.Record{"name": "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "CUST1000", e.ID)

	e, err = svc.Create(ctx, "customers", core.Record{"name": "Globex"})
	require.NoError(t, err)
	assert.Equal(t, "CUST1001", e.ID)
}

func TestCreate_IgnoresMalformedLegacyIdentifiers(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	for _, id := range []string{"CUST004", "CUST-OLD"} {
		_, err := store.Upsert(ctx, &core.Entity{Kind: "customers", ID: id, Fields: core.Fields{"name": id}})
		require.NoError(t, err)
	}

	svc := newService(t, store, core.Options{})
	e, err := svc.Create(ctx, "customers", core.Record{"name": "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "CUST005", e.ID)
}

func TestCreate_RetriesAfterCollision(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	store.createFailures = 2
	metrics := &countingMetrics{}

	svc := newService(t, store, core.Options{AllocationRetries: 3, Metrics: metrics})
	e, err := svc.Create(ctx, "customers", core.Record{"name": "Acme"})
	require.NoError(t, err)

	assert.Equal(t, []string{"CUST001", "CUST002", "CUST003"}, store.createAttempted,
		"each retry allocates a fresh identifier")
	assert.Equal(t, "CUST003", e.ID)
	assert.Equal(t, 2, metrics.collisions)
	assert.Equal(t, 1, metrics.allocated)
}

func TestCreate_SurfacesDuplicateWhenRetriesExhausted(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	store.createFailures = 10

	svc := newService(t, store, core.Options{AllocationRetries: 2})
	_, err := svc.Create(ctx, "customers", core.Record{"name": "Acme"})
	require.ErrorIs(t, err, core.ErrDuplicateIdentifier)
	assert.Len(t, store.createAttempted, 3)

	_, total, err := svc.List(ctx, core.ListFilter{Kind: "customers"})
	require.NoError(t, err)
	assert.Zero(t, total)
}

// Without the sequence guard two writers can propose the same identifier;
// the second create must fail rather than overwrite the first.
func TestCreate_RacingAllocationsNeverOverwrite(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	store.staleSnapshot = true
	store.bypassSequence = true

	svc := newService(t, store, core.Options{AllocationRetries: -1})

	first, err := svc.Create(ctx, "customers", core.Record{"name": "First"})
	require.NoError(t, err)
	assert.Equal(t, "CUST001", first.ID)

	_, err = svc.Create(ctx, "customers", core.Record{"name": "Second"})
	require.ErrorIs(t, err, core.ErrDuplicateIdentifier)

	got, err := svc.Get(ctx, "customers", "CUST001")
	require.NoError(t, err)
	assert.Equal(t, "First", got.Fields["name"])
}

func TestCreate_ConcurrentCallersGetDistinctIdentifiers(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, memstore.New(), core.Options{})

	const workers = 25
	ids := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := svc.Create(ctx, "customers", core.Record{"name": "n"})
			if err != nil {
				t.Error(err)
				return
			}
			ids <- e.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, workers)
}

func TestCreate_ValidationErrors(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, memstore.New(), core.Options{})

	_, err := svc.Create(ctx, "customers", core.Record{"email": "a@b.c"})
	assert.ErrorIs(t, err, core.ErrInvalidField)

	_, err = svc.Create(ctx, "gadgets", core.Record{"name": "x"})
	assert.ErrorIs(t, err, core.ErrUnknownEntity)

	_, err = svc.Create(ctx, "leases", core.Record{"customerId": "CUST404", "startDate": "2024-01-01"})
	require.ErrorIs(t, err, core.ErrInvalidField)
	assert.Contains(t, err.Error(), "referenced customer CUST404 does not exist")

	cust, err := svc.Create(ctx, "customers", core.Record{"name": "Acme"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "leases", core.Record{
		"customerId": cust.ID, "startDate": "2024-06-01", "endDate": "2024-01-01",
	})
	assert.ErrorIs(t, err, core.ErrInvalidField)

	lease, err := svc.Create(ctx, "leases", core.Record{"customerId": cust.ID, "startDate": "2024-06-01"})
	require.NoError(t, err)
	assert.Equal(t, "LSE001", lease.ID)
}

// ----------------------------------------------------------------------------
// Get / Update / Delete / PeekNextID
// ----------------------------------------------------------------------------

func TestUpdate_MergesFields(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, memstore.New(), core.Options{})

	e, err := svc.Create(ctx, "customers", core.Record{"name": "Acme", "email": "ops@acme.test"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "customers", e.ID, core.Record{"id": "CUST999", "creditLimit": "5000"})
	require.NoError(t, err)
	assert.Equal(t, e.ID, updated.ID, "identifier is immutable")
	assert.Equal(t, "Acme", updated.Fields["name"])
	assert.Equal(t, "ops@acme.test", updated.Fields["email"])
	assert.Equal(t, "5000", core.FieldString(updated.Fields["creditLimit"]))

	_, err = svc.Update(ctx, "customers", e.ID, core.Record{"name": ""})
	assert.ErrorIs(t, err, core.ErrInvalidField)

	_, err = svc.Update(ctx, "customers", "CUST404", core.Record{"name": "x"})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, memstore.New(), core.Options{})

	e, err := svc.Create(ctx, "customers", core.Record{"name": "Acme"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "customers", e.ID))

	_, err = svc.Get(ctx, "customers", e.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "customers", e.ID), core.ErrNotFound)
}

func TestPeekNextID_DoesNotReserve(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, memstore.New(), core.Options{})

	for i := 0; i < 2; i++ {
		next, err := svc.PeekNextID(ctx, "customers")
		require.NoError(t, err)
		assert.Equal(t, "CUST001", next)
	}

	e, err := svc.Create(ctx, "customers", core.Record{"name": "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "CUST001", e.ID)

	next, err := svc.PeekNextID(ctx, "customers")
	require.NoError(t, err)
	assert.Equal(t, "CUST002", next)
}

// ----------------------------------------------------------------------------
// Import
// ----------------------------------------------------------------------------

const threeCustomers = "id,name,email\nCUST001,Acme,ops@acme.test\nCUST002,Globex,\nCUST003,Initech,it@initech.test\n"

func TestImport_PartialSuccess(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	store.upsertFailIDs["CUST002"] = true
	svc := newService(t, store, core.Options{})

	out, err := svc.Import(ctx, "customers", "customers.csv", []byte(threeCustomers), 0)
	require.NoError(t, err)

	assert.Equal(t, 3, out.TotalRows)
	assert.Equal(t, 2, out.Processed)
	assert.Equal(t, 2, out.Created)
	require.Len(t, out.Errors, 1)
	assert.True(t, strings.HasPrefix(out.Errors[0], "Customer CUST002: "), out.Errors[0])
	assert.NotEmpty(t, out.BatchID)

	_, err = svc.Get(ctx, "customers", "CUST003")
	assert.NoError(t, err, "rows after a failure are still processed")
}

func TestImport_ErrorsKeepFileOrder(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, memstore.New(), core.Options{})

	data := "id,name,creditLimit\nCUST001,Acme,lots\nCUST002,Globex,10\nCUST003,Initech,plenty\n"
	out, err := svc.Import(ctx, "customers", "c.csv", []byte(data), 0)
	require.NoError(t, err)

	assert.Equal(t, 1, out.Processed)
	require.Len(t, out.Errors, 2)
	assert.True(t, strings.HasPrefix(out.Errors[0], "Customer CUST001: "))
	assert.True(t, strings.HasPrefix(out.Errors[1], "Customer CUST003: "))
	assert.Contains(t, out.Errors[0], "invalid number")
}

func TestImport_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := newService(t, store, core.Options{})

	first, err := svc.Import(ctx, "customers", "c.csv", []byte(threeCustomers), 0)
	require.NoError(t, err)
	before, _, err := svc.List(ctx, core.ListFilter{Kind: "customers"})
	require.NoError(t, err)

	second, err := svc.Import(ctx, "customers", "c.csv", []byte(threeCustomers), 0)
	require.NoError(t, err)
	after, _, err := svc.List(ctx, core.ListFilter{Kind: "customers"})
	require.NoError(t, err)

	assert.Equal(t, 3, first.Processed)
	assert.Equal(t, 3, second.Processed)
	assert.Equal(t, 3, first.Created)
	assert.Equal(t, 3, second.Updated)

	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
		assert.Equal(t, before[i].Fields, after[i].Fields)
	}
}

func TestImport_ValidationFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, memstore.New(), core.Options{})

	data := "id,name\nCUST001,Acme\nCUST002,\n"
	out, err := svc.Import(ctx, "customers", "c.csv", []byte(data), 0)
	assert.Nil(t, out)
	require.ErrorIs(t, err, core.ErrValidationFailed)

	var verr *core.ImportValidationError
	require.ErrorAs(t, err, &verr)
	assert.False(t, verr.Result.Valid)
	assert.Equal(t, []string{`Row 3: missing required field "name"`}, verr.Result.Errors)

	_, total, _ := svc.List(ctx, core.ListFilter{Kind: "customers"})
	assert.Zero(t, total)
}

func TestImport_MissingColumn(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, memstore.New(), core.Options{})

	_, err := svc.Import(ctx, "leases", "l.csv", []byte("id,customerId\nLSE001,CUST001\n"), 0)
	var verr *core.ImportValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{`missing required column "startDate"`}, verr.Result.Errors)
}

func TestImport_InputErrors(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, memstore.New(), core.Options{})

	_, err := svc.Import(ctx, "customers", "c.csv", nil, 0)
	assert.ErrorIs(t, err, core.ErrMalformedInput)

	_, err = svc.Import(ctx, "customers", "c.csv", []byte{}, 0)
	assert.ErrorIs(t, err, core.ErrMalformedInput)
	assert.NotErrorIs(t, err, core.ErrMissingInput)

	_, err = svc.Import(ctx, "customers", "c.csv", []byte("  \n \n"), 0)
	assert.ErrorIs(t, err, core.ErrMalformedInput)

	_, err = svc.Import(ctx, "gadgets", "g.csv", []byte("id\nG1\n"), 0)
	assert.ErrorIs(t, err, core.ErrUnknownEntity)
}

func TestImport_DelimiterAndReferences(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, memstore.New(), core.Options{})

	_, err := svc.Import(ctx, "customers", "c.csv", []byte("id;name\nCUST001;Acme\n"), ';')
	require.NoError(t, err)

	out, err := svc.Import(ctx, "leases", "l.csv",
		[]byte("id,customerId,startDate\nLSE001,CUST001,2024-01-01\nLSE002,CUST404,2024-01-01\n"), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Processed)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "Lease LSE002: customerId: referenced customer CUST404 does not exist", out.Errors[0])
}

func TestImport_AdvancesAllocator(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, memstore.New(), core.Options{})

	_, err := svc.Import(ctx, "customers", "c.csv", []byte("id,name\nCUST010,Acme\nLEGACY-7,Old\n"), 0)
	require.NoError(t, err)

	e, err := svc.Create(ctx, "customers", core.Record{"name": "New"})
	require.NoError(t, err)
	assert.Equal(t, "CUST011", e.ID)
}

func TestImport_RowLinesCountBlankAndMultilineRows(t *testing.T) {
	svc := newService(t, memstore.New(), core.Options{})

	data := "id,name\nCUST001,Acme\n,,\nCUST002,\n\"CUST003\",\"multi\nline\"\nCUST004,\n"
	_, err := svc.Import(context.Background(), "customers", "c.csv", []byte(data), 0)

	var verr *core.ImportValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{
		`Row 4: missing required field "name"`,
		`Row 7: missing required field "name"`,
	}, verr.Result.Errors)
}

func TestImport_SequenceRaiseFailureKeepsOutcome(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	store.raiseErr = errors.New("connection reset by peer")
	svc := newService(t, store, core.Options{})

	out, err := svc.Import(ctx, "customers", "c.csv", []byte("id,name\nCUST007,Acme\n"), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Processed)

	e, err := svc.Create(ctx, "customers", core.Record{"name": "Next"})
	require.NoError(t, err)
	assert.Equal(t, "CUST008", e.ID)
}

func TestImport_WarnsOnForeignIdentifiers(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	ctx := context.Background()
	svc := newService(t, memstore.New(), core.Options{})

	out, err := svc.Import(ctx, "customers", "c.csv", []byte("id,name\nLSE001,Acme\nCUST002,Beta\n"), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Processed)
	assert.Contains(t, buf.String(), "imported identifiers outside the allocator's format")
	assert.Contains(t, buf.String(), "LSE001")

	e, err := svc.Create(ctx, "customers", core.Record{"name": "Next"})
	require.NoError(t, err)
	assert.Equal(t, "CUST003", e.ID)
}

func TestImport_RecordsActivityAndMetrics(t *testing.T) {
	ctx := core.ContextWithUserID(context.Background(), "USR001")
	metrics := &countingMetrics{}
	svc := newService(t, memstore.New(), core.Options{Metrics: metrics})

	out, err := svc.Import(ctx, "customers", "c.csv", []byte(threeCustomers), 0)
	require.NoError(t, err)

	entries, total, err := svc.ListActivity(context.Background(), core.ActivityFilter{Action: core.ActionImport})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.Equal(t, "USR001", entries[0].UserID)
	assert.Equal(t, core.SeverityHigh, entries[0].Severity)
	assert.Equal(t, out.BatchID, entries[0].Details["batchId"])
	assert.Equal(t, 1, metrics.imports)

	got, err := svc.GetActivity(context.Background(), entries[0].ID)
	require.NoError(t, err)
	assert.Equal(t, entries[0].ID, got.ID)

	_, err = svc.GetActivity(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestImport_TooManyConcurrent(t *testing.T) {
	store := newFaultyStore()
	store.upsertGate = make(chan struct{})
	store.upsertEntered = make(chan struct{}, 1)
	svc := newService(t, store, core.Options{MaxConcurrentImports: 1, ImportWait: 50 * time.Millisecond})

	done := make(chan error, 1)
	go func() {
		_, err := svc.Import(context.Background(), "customers", "a.csv", []byte("id,name\nCUST001,A\n"), 0)
		done <- err
	}()
	<-store.upsertEntered

	_, err := svc.Import(context.Background(), "customers", "b.csv", []byte("id,name\nCUST002,B\n"), 0)
	assert.ErrorIs(t, err, core.ErrTooManyUploads)
	assert.Equal(t, 1, svc.ImportLimiterStatus().Active)

	close(store.upsertGate)
	require.NoError(t, <-done)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, svc.WaitForImports(ctx))
}

func TestBatchUpsert_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := newService(t, memstore.New(), core.Options{})
	def, err := core.Lookup("customers")
	require.NoError(t, err)

	out, err := svc.BatchUpsert(ctx, def, []core.Record{{"id": "CUST001", "name": "Acme"}})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, out)
	assert.Zero(t, out.Processed)
	assert.Equal(t, 1, out.TotalRows)
}

// ----------------------------------------------------------------------------
// Activity
// ----------------------------------------------------------------------------

func TestActivity_CreateUpdateDelete(t *testing.T) {
	ctx := core.ContextWithIPAddress(context.Background(), "10.0.0.1")
	svc := newService(t, memstore.New(), core.Options{})

	e, err := svc.Create(ctx, "customers", core.Record{"name": "Acme"})
	require.NoError(t, err)
	_, err = svc.Update(ctx, "customers", e.ID, core.Record{"email": "a@b.c"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "customers", e.ID))

	entries, total, err := svc.ListActivity(ctx, core.ActivityFilter{Kind: "customers", EntityID: e.ID})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)

	actions := []core.ActivityAction{entries[0].Action, entries[1].Action, entries[2].Action}
	assert.Equal(t, []core.ActivityAction{core.ActionDelete, core.ActionUpdate, core.ActionCreate}, actions)
	assert.Equal(t, "10.0.0.1", entries[0].IPAddress)
	assert.Equal(t, []string{"email"}, entries[1].Details["fields"])

	_, _, err = svc.ListActivity(ctx, core.ActivityFilter{Kind: "gadgets"})
	assert.ErrorIs(t, err, core.ErrUnknownEntity)
}

func TestPruneActivity(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }
	store := memstore.New()
	svc := newService(t, store, core.Options{Clock: now})

	for i := 0; i < 5; i++ {
		_, err := svc.Create(ctx, "customers", core.Record{"name": "old"})
		require.NoError(t, err)
	}

	clock = clock.AddDate(0, 0, 100)
	_, err := svc.Create(ctx, "customers", core.Record{"name": "recent"})
	require.NoError(t, err)

	removed := svc.PruneActivity(ctx, core.PruneConfig{RetentionDays: 90, BatchSize: 2})
	assert.EqualValues(t, 5, removed)

	_, total, err := svc.ListActivity(ctx, core.ActivityFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}
