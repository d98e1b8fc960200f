package db

import (
	"context"
	"errors"
	"testing"

	"guardiao/models"
)

func TestRegisterFungibleMerges(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, merged, err := f.repo.RegisterMaterial(ctx, RegisterMaterialInput{Name: "Colete", CategoryID: f.category.ID, Quantity: 4})
	if err != nil || merged {
		t.Fatalf("first register: merged=%v err=%v", merged, err)
	}
	second, merged, err := f.repo.RegisterMaterial(ctx, RegisterMaterialInput{Name: " Colete ", CategoryID: f.category.ID, Quantity: 3})
	if err != nil {
		t.Fatalf("second register: %v", err)
	}
	if !merged || second.ID != first.ID {
		t.Fatalf("expected merge into %s, got %s merged=%v", first.ID, second.ID, merged)
	}
	expectCounters(t, f.reload(t, first.ID), 7, 7, 0)
	if n := countRows(t, f.repo, &models.Material{}); n != 1 {
		t.Errorf("materials = %d, want 1", n)
	}
}

func TestRegisterMergeKeepsLoanedUnits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.fungible(t, "Colete", 4)
	f.loan(t, "Portão", item(m, 3))

	if _, _, err := f.repo.RegisterMaterial(ctx, RegisterMaterialInput{Name: "Colete", CategoryID: f.category.ID, Quantity: 2}); err != nil {
		t.Fatalf("register: %v", err)
	}
	expectCounters(t, f.reload(t, m.ID), 6, 3, 3)
}

func TestRegisterSameNameOtherCategory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	other, err := f.repo.CreateCategory(ctx, CategoryInput{Name: "Equipamento"})
	if err != nil {
		t.Fatalf("category: %v", err)
	}
	a := f.fungible(t, "Bolsa", 2)
	b, merged, err := f.repo.RegisterMaterial(ctx, RegisterMaterialInput{Name: "Bolsa", CategoryID: other.ID, Quantity: 2})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if merged || a.ID == b.ID {
		t.Errorf("different categories must not merge")
	}
}

func TestRegisterUncategorized(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	a, merged, err := f.repo.RegisterMaterial(ctx, RegisterMaterialInput{Name: "Corda", Quantity: 2})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if merged || a.CategoryID != nil {
		t.Fatalf("first uncategorized register: merged=%v category=%v", merged, a.CategoryID)
	}
	b, merged, err := f.repo.RegisterMaterial(ctx, RegisterMaterialInput{Name: "Corda", Quantity: 3})
	if err != nil {
		t.Fatalf("register again: %v", err)
	}
	if !merged || b.ID != a.ID {
		t.Errorf("uncategorized same name should merge")
	}
	expectCounters(t, f.reload(t, a.ID), 5, 5, 0)

	c := f.fungible(t, "Corda", 1)
	if c.ID == a.ID {
		t.Error("categorized material merged into uncategorized one")
	}

	// 改成不归类时与已有的未归类同名物资冲突
	if _, err := f.repo.UpdateMaterial(ctx, c.ID, UpdateMaterialInput{Name: "Corda"}); !IsConflict(err) {
		t.Errorf("move into uncategorized duplicate: err = %v, want conflict", err)
	}
}

func TestRegisterSerialized(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	gun := f.serialized(t, "Pistola", "PT-100")
	if !gun.HasSerial || gun.Serial == nil || *gun.Serial != "PT-100" {
		t.Fatalf("unexpected serialized material: %+v", gun)
	}
	expectCounters(t, gun, 1, 1, 0)

	// 同名不同序列号是另一件
	other := f.serialized(t, "Pistola", "PT-101")
	if other.ID == gun.ID {
		t.Error("distinct serials merged")
	}

	_, _, err := f.repo.RegisterMaterial(ctx, RegisterMaterialInput{Name: "Fuzil", CategoryID: f.category.ID, Serial: "PT-100"})
	if !IsConflict(err) {
		t.Errorf("duplicate serial: err = %v, want conflict", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, _, err := f.repo.RegisterMaterial(ctx, RegisterMaterialInput{Name: "", CategoryID: f.category.ID, Quantity: 1}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank name: err = %v", err)
	}
	if _, _, err := f.repo.RegisterMaterial(ctx, RegisterMaterialInput{Name: "Colete", CategoryID: f.category.ID}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("zero quantity: err = %v", err)
	}
	if _, _, err := f.repo.RegisterMaterial(ctx, RegisterMaterialInput{Name: "Colete", CategoryID: "nope", Quantity: 1}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown category: err = %v", err)
	}
}

func intp(v int) *int       { return &v }
func strp(s string) *string { return &s }

func TestUpdateFungibleTotal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.fungible(t, "Algema", 10)
	f.loan(t, "Ronda", item(m, 4))

	got, err := f.repo.UpdateMaterial(ctx, m.ID, UpdateMaterialInput{Name: "Algema", CategoryID: f.category.ID, Quantity: intp(6)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	expectCounters(t, got, 6, 2, 4)

	_, err = f.repo.UpdateMaterial(ctx, m.ID, UpdateMaterialInput{Name: "Algema", CategoryID: f.category.ID, Quantity: intp(3)})
	if !IsConflict(err) {
		t.Errorf("total below loaned: err = %v, want conflict", err)
	}
	expectCounters(t, f.reload(t, m.ID), 6, 2, 4)
}

func TestUpdateMaterialSerialRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	gun := f.serialized(t, "Pistola", "PT-200")
	f.serialized(t, "Pistola", "PT-201")
	box := f.fungible(t, "Munição", 100)

	tests := []struct {
		name string
		id   string
		in   UpdateMaterialInput
		want func(error) bool
	}{
		{"drop serial", gun.ID, UpdateMaterialInput{Name: "Pistola", CategoryID: f.category.ID, Serial: strp("")}, func(err error) bool { return errors.Is(err, ErrInvalidInput) }},
		{"serialized total", gun.ID, UpdateMaterialInput{Name: "Pistola", CategoryID: f.category.ID, Quantity: intp(2)}, func(err error) bool { return errors.Is(err, ErrInvalidInput) }},
		{"serial taken", gun.ID, UpdateMaterialInput{Name: "Pistola", CategoryID: f.category.ID, Serial: strp("PT-201")}, IsConflict},
		{"fungible gains serial", box.ID, UpdateMaterialInput{Name: "Munição", CategoryID: f.category.ID, Serial: strp("X-1")}, func(err error) bool { return errors.Is(err, ErrInvalidInput) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.repo.UpdateMaterial(ctx, tt.id, tt.in); !tt.want(err) {
				t.Errorf("unexpected err: %v", err)
			}
		})
	}

	got, err := f.repo.UpdateMaterial(ctx, gun.ID, UpdateMaterialInput{Name: "Pistola .40", CategoryID: f.category.ID, Serial: strp("PT-202")})
	if err != nil {
		t.Fatalf("rename serialized: %v", err)
	}
	if got.Name != "Pistola .40" || *got.Serial != "PT-202" {
		t.Errorf("got %s/%s", got.Name, *got.Serial)
	}
	expectCounters(t, got, 1, 1, 0)
}

func TestUpdateFungibleRenameCollision(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fungible(t, "Capacete", 2)
	m := f.fungible(t, "Capacete velho", 2)

	_, err := f.repo.UpdateMaterial(ctx, m.ID, UpdateMaterialInput{Name: "Capacete", CategoryID: f.category.ID})
	if !IsConflict(err) {
		t.Errorf("err = %v, want conflict", err)
	}
}

func TestSearchLoanable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	free := f.serialized(t, "Pistola", "PT-300")
	busy := f.serialized(t, "Pistola", "PT-301")
	empty := f.fungible(t, "Rádio", 1)
	some := f.fungible(t, "Radinho", 5)
	f.loan(t, "Base", item(busy, 1), item(empty, 1), item(some, 2))

	rows, err := f.repo.SearchLoanable(ctx, "", "")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	got := map[string]int{}
	for _, r := range rows {
		got[r.ID] = r.Available
	}
	if _, ok := got[busy.ID]; ok {
		t.Error("serialized item on loan listed as loanable")
	}
	if _, ok := got[empty.ID]; ok {
		t.Error("exhausted fungible listed as loanable")
	}
	if got[free.ID] != 1 {
		t.Errorf("free serialized available = %d, want 1", got[free.ID])
	}
	if got[some.ID] != 3 {
		t.Errorf("fungible available = %d, want 3", got[some.ID])
	}

	rows, err = f.repo.SearchLoanable(ctx, "", "300")
	if err != nil {
		t.Fatalf("search by serial: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != free.ID {
		t.Errorf("serial filter returned %+v", rows)
	}
}

func TestListMaterialsGroupsByCategory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	eq, err := f.repo.CreateCategory(ctx, CategoryInput{Name: "Acessórios"})
	if err != nil {
		t.Fatalf("category: %v", err)
	}
	f.fungible(t, "Colete", 1)
	if _, _, err := f.repo.RegisterMaterial(ctx, RegisterMaterialInput{Name: "Coldre", CategoryID: eq.ID, Quantity: 2}); err != nil {
		t.Fatalf("register: %v", err)
	}

	groups, err := f.repo.ListMaterials(ctx, MaterialQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(groups) != 2 || groups[0].Category != "Acessórios" || groups[1].Category != "Armamento" {
		t.Fatalf("groups = %+v", groups)
	}

	groups, err = f.repo.ListMaterials(ctx, MaterialQuery{Q: "cold"})
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(groups) != 1 || len(groups[0].Materials) != 1 || groups[0].Materials[0].Name != "Coldre" {
		t.Errorf("filtered groups = %+v", groups)
	}
}

func TestDeleteMaterialRemovesLineItems(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.fungible(t, "Lanterna", 3)
	f.loan(t, "Ronda", item(m, 1))

	if err := f.repo.DeleteMaterial(ctx, m.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n := countRows(t, f.repo, &models.LoanItem{}); n != 0 {
		t.Errorf("line items left = %d", n)
	}
	if err := f.repo.DeleteMaterial(ctx, m.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: err = %v, want ErrNotFound", err)
	}
}

func TestDeleteCategoryCascadesMaterials(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fungible(t, "Lanterna", 3)
	f.serialized(t, "Pistola", "PT-400")

	if err := f.repo.DeleteCategory(ctx, f.category.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	if n := countRows(t, f.repo, &models.Material{}); n != 0 {
		t.Errorf("materials left = %d", n)
	}
}
