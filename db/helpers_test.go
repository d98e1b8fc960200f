package db

import (
	"context"
	"testing"

	"guardiao/models"
	"guardiao/testutil"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	return newTestRepoWithLogger(t, zap.NewNop())
}

func newTestRepoWithLogger(t *testing.T, log *zap.Logger) *Repo {
	t.Helper()
	conn := testutil.SetupTestDB(t)
	if err := Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	r := NewRepo(conn, log)
	r.PasswordCost = bcrypt.MinCost
	return r
}

type fixture struct {
	repo     *Repo
	operator *models.Operator
	client   *models.Client
	category *models.Category
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithRepo(t, newTestRepo(t))
}

func newFixtureWithRepo(t *testing.T, r *Repo) *fixture {
	t.Helper()
	ctx := context.Background()
	op, err := r.CreateOperator(ctx, OperatorInput{
		Username: "sgt.silva", Password: "secret", Name: "Silva", Identity: "123", AccessLevel: models.LevelSupervisor,
	})
	if err != nil {
		t.Fatalf("seed operator: %v", err)
	}
	cl, err := r.CreateClient(ctx, ClientInput{Name: "Cabo Souza", Identity: "456", MilitaryUnit: "1º BPE"})
	if err != nil {
		t.Fatalf("seed client: %v", err)
	}
	cat, err := r.CreateCategory(ctx, CategoryInput{Name: "Armamento"})
	if err != nil {
		t.Fatalf("seed category: %v", err)
	}
	return &fixture{repo: r, operator: op, client: cl, category: cat}
}

func (f *fixture) fungible(t *testing.T, name string, qty int) *models.Material {
	t.Helper()
	m, _, err := f.repo.RegisterMaterial(context.Background(), RegisterMaterialInput{
		Name: name, CategoryID: f.category.ID, Quantity: qty,
	})
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return m
}

func (f *fixture) serialized(t *testing.T, name, serial string) *models.Material {
	t.Helper()
	m, _, err := f.repo.RegisterMaterial(context.Background(), RegisterMaterialInput{
		Name: name, CategoryID: f.category.ID, Serial: serial,
	})
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return m
}

func (f *fixture) loan(t *testing.T, dest string, items ...LoanItemInput) *models.Loan {
	t.Helper()
	l, err := f.repo.CreateLoan(context.Background(), CreateLoanInput{
		ClientID: f.client.ID, OperatorID: f.operator.ID, Destination: dest, Items: items,
	})
	if err != nil {
		t.Fatalf("create loan: %v", err)
	}
	return l
}

func (f *fixture) reload(t *testing.T, id string) *models.Material {
	t.Helper()
	m, err := f.repo.FindMaterialByID(context.Background(), id)
	if err != nil {
		t.Fatalf("reload material: %v", err)
	}
	return m
}

// expectCounters 同时校验 available + loaned == total
func expectCounters(t *testing.T, m *models.Material, total, available, loaned int) {
	t.Helper()
	if m.QuantityTotal != total || m.QuantityAvailable != available || m.QuantityLoaned != loaned {
		t.Errorf("%s: total/available/loaned = %d/%d/%d, want %d/%d/%d",
			m.Name, m.QuantityTotal, m.QuantityAvailable, m.QuantityLoaned, total, available, loaned)
	}
	if m.QuantityAvailable+m.QuantityLoaned != m.QuantityTotal {
		t.Errorf("%s: available + loaned != total", m.Name)
	}
}

func item(m *models.Material, qty int) LoanItemInput {
	return LoanItemInput{MaterialID: m.ID, Quantity: qty}
}

func countRows(t *testing.T, r *Repo, model any) int64 {
	t.Helper()
	var n int64
	if err := r.DB.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
