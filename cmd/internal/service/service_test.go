package service

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"

	"perdecomp/cmd/internal/domain/perdcomp"
	"perdecomp/cmd/internal/domain/sqlite"
	"perdecomp/cmd/internal/domain/sqlite/repository"
	"perdecomp/cmd/internal/infrastructure/infosimples"
	"perdecomp/cmd/internal/utils/uid"
	"perdecomp/cmd/internal/utils/validators"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	testCNPJ   = "46241741000165"
	testBranch = "46241741000408"
)

type fakeProvider struct {
	calls  atomic.Int32
	result *infosimples.Result
	err    error
}

func (f *fakeProvider) Fetch(ctx context.Context, req infosimples.Request) (*infosimples.Result, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type testEnv struct {
	db        *gorm.DB
	store     *repository.DefaultTableStore
	clients   *repository.DefaultClientRepository
	snapshots *repository.DefaultSnapshotRepository
	facts     *repository.DefaultFactRepository
	legacy    *repository.DefaultLegacyRepository
	svc       *PerdcompService
}

func newValidator() *validator.Validate {
	v := validator.New()
	validators.Register(v)
	return v
}

// newTestEnv builds the lookup service over a fresh sqlite file. provider
// may be nil.
func newTestEnv(t *testing.T, provider FilingsProvider) *testEnv {
	t.Helper()
	uid.Init(1)

	db, err := sqlite.Init(sqlite.Options{DSN: filepath.Join(t.TempDir(), "test.db"), Silent: true})
	if err != nil {
		t.Fatalf("init db: %v", err)
	}

	e := &testEnv{db: db, store: repository.NewTableStore(db)}
	e.clients = repository.NewClientRepository(e.store)
	e.snapshots = repository.NewSnapshotRepository(e.store)
	e.facts = repository.NewFactRepository(e.store)
	e.legacy = repository.NewLegacyRepository(e.store)

	e.svc = NewPerdcompService(
		provider,
		e.snapshots,
		e.facts,
		e.legacy,
		NewIdentityResolver(e.clients, e.snapshots, e.facts, e.legacy),
		perdcomp.DefaultTaxonomy(),
		newValidator(),
	)
	return e
}

// sampleResult is two compensations, one restitution and one cancellation.
func sampleResult() *infosimples.Result {
	return &infosimples.Result{
		Code:        infosimples.CodeOK,
		RequestedAt: "2024-05-02T10:00:00Z",
		Entries: []perdcomp.Entry{
			{Numero: "12345.67890.150323.1.3.04-1234", Situacao: "Deferido", TipoCredito: "Pagamento indevido ou a maior"},
			{Numero: "12345.67891.160323.1.3.02-1234", Situacao: "Em análise"},
			{Numero: "22345.67890.170323.2.2.01-0001", Situacao: "Indeferido"},
			{Numero: "32345.67890.180323.1.8.04-0001", Situacao: "Cancelado"},
		},
		MappedCount: 4,
		SiteReceipt: "https://receipts.example/abc.html",
	}
}
