package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"guardiao/app"
	"guardiao/db"
	"guardiao/models"
	"guardiao/routes"
	"guardiao/testutil"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type server struct {
	t     *testing.T
	app   *app.App
	repo  *db.Repo
	admin *http.Cookie
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	conn := testutil.SetupTestDB(t)
	if err := db.Migrate(conn); err != nil {
		t.Fatal(err)
	}
	rdb, _ := testutil.SetupRedis(t)
	cfg := app.Config{WebOrigin: "http://localhost", SessionTTL: time.Hour, SeenThrottle: time.Minute}
	a := app.New(cfg, conn, rdb, zap.NewNop())
	routes.RegisterRoutes(a.Router, a)

	repo := db.NewRepo(conn, zap.NewNop())
	repo.PasswordCost = bcrypt.MinCost
	s := &server{t: t, app: a, repo: repo}
	s.admin = s.operator("chefe", models.LevelSupervisor)
	return s
}

// operator 建一个操作员并登录，返回会话 Cookie
func (s *server) operator(username string, level int) *http.Cookie {
	s.t.Helper()
	if _, err := s.repo.CreateOperator(context.Background(), db.OperatorInput{
		Username: username, Password: "senha", Name: username, Identity: "1", AccessLevel: level,
	}); err != nil {
		s.t.Fatal(err)
	}
	w := s.do(http.MethodPost, "/auth/login", nil, map[string]string{"username": username, "password": "senha"})
	if w.Code != http.StatusOK {
		s.t.Fatalf("login %s: %d %s", username, w.Code, w.Body.String())
	}
	for _, ck := range w.Result().Cookies() {
		if ck.Name == app.AppSessionCookie {
			return ck
		}
	}
	s.t.Fatal("no session cookie")
	return nil
}

func (s *server) do(method, path string, ck *http.Cookie, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if ck != nil {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	s.app.Router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func (s *server) expectStatus(w *httptest.ResponseRecorder, want int) {
	s.t.Helper()
	if w.Code != want {
		s.t.Fatalf("status = %d, want %d: %s", w.Code, want, w.Body.String())
	}
}

func (s *server) material(id string) models.Material {
	s.t.Helper()
	w := s.do(http.MethodGet, "/api/materials/"+id, s.admin, nil)
	s.expectStatus(w, http.StatusOK)
	return decode[struct {
		Material models.Material `json:"material"`
	}](s.t, w).Material
}

type seed struct {
	clientID string
	ammoID   string
	gunID    string
}

func (s *server) seed() seed {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/categories", s.admin, map[string]string{"name": "Armamento"})
	s.expectStatus(w, http.StatusCreated)
	cat := decode[struct {
		Category models.Category `json:"category"`
	}](s.t, w).Category

	w = s.do(http.MethodPost, "/api/clients", s.admin, map[string]string{"name": "Cabo Souza", "identity": "42"})
	s.expectStatus(w, http.StatusCreated)
	cl := decode[struct {
		Client models.Client `json:"client"`
	}](s.t, w).Client

	type registered struct {
		Material models.Material `json:"material"`
		Merged   bool            `json:"merged"`
	}
	w = s.do(http.MethodPost, "/api/materials", s.admin, map[string]any{"name": "Munição", "categoryId": cat.ID, "quantity": 10})
	s.expectStatus(w, http.StatusCreated)
	ammo := decode[registered](s.t, w).Material

	w = s.do(http.MethodPost, "/api/materials", s.admin, map[string]any{"name": "Pistola", "categoryId": cat.ID, "serial": "PT-1"})
	s.expectStatus(w, http.StatusCreated)
	gun := decode[registered](s.t, w).Material

	return seed{clientID: cl.ID, ammoID: ammo.ID, gunID: gun.ID}
}

func TestLoanLifecycleOverHTTP(t *testing.T) {
	s := newServer(t)
	d := s.seed()
	armeiro := s.operator("armeiro", models.LevelCustodian)

	w := s.do(http.MethodPost, "/api/loans", armeiro, map[string]any{
		"clientId":    d.clientID,
		"destination": "Guarita",
		"items": []map[string]any{
			{"materialId": d.ammoID, "quantity": 3},
			{"materialId": d.gunID, "quantity": 1},
		},
	})
	s.expectStatus(w, http.StatusCreated)
	loan := decode[struct {
		Loan models.Loan `json:"loan"`
	}](t, w).Loan

	if m := s.material(d.ammoID); m.QuantityAvailable != 7 || m.QuantityLoaned != 3 {
		t.Errorf("ammo after loan = %d/%d", m.QuantityAvailable, m.QuantityLoaned)
	}

	// 同一把枪不能再借
	w = s.do(http.MethodPost, "/api/loans", armeiro, map[string]any{
		"clientId": d.clientID, "destination": "Portão",
		"items": []map[string]any{{"materialId": d.gunID, "quantity": 1}},
	})
	s.expectStatus(w, http.StatusConflict)

	w = s.do(http.MethodPost, "/api/loans/"+loan.ID+"/status", armeiro, map[string]string{"action": "deactivate"})
	s.expectStatus(w, http.StatusOK)
	if m := s.material(d.gunID); m.QuantityAvailable != 1 || m.QuantityLoaned != 0 {
		t.Errorf("gun after deactivate = %d/%d", m.QuantityAvailable, m.QuantityLoaned)
	}

	w = s.do(http.MethodPost, "/api/loans/"+loan.ID+"/status", armeiro, map[string]string{"action": "deactivate"})
	s.expectStatus(w, http.StatusConflict)

	w = s.do(http.MethodPost, "/api/loans/"+loan.ID+"/status", armeiro, map[string]string{"action": "reactivate"})
	s.expectStatus(w, http.StatusOK)

	w = s.do(http.MethodGet, "/api/loans/"+loan.ID, armeiro, nil)
	s.expectStatus(w, http.StatusOK)
	got := decode[struct {
		Loan models.Loan `json:"loan"`
	}](t, w).Loan
	if len(got.History) != 3 || len(got.Items) != 2 {
		t.Errorf("history=%d items=%d", len(got.History), len(got.Items))
	}

	// 删除需要级别 3
	w = s.do(http.MethodDelete, "/api/loans/"+loan.ID, armeiro, nil)
	s.expectStatus(w, http.StatusForbidden)
	w = s.do(http.MethodDelete, "/api/loans/"+loan.ID, s.admin, nil)
	s.expectStatus(w, http.StatusOK)

	if m := s.material(d.ammoID); m.QuantityAvailable != 10 || m.QuantityLoaned != 0 {
		t.Errorf("ammo after delete = %d/%d", m.QuantityAvailable, m.QuantityLoaned)
	}
	w = s.do(http.MethodGet, "/api/loans/"+loan.ID, armeiro, nil)
	s.expectStatus(w, http.StatusNotFound)
}

func TestLoanValidationOverHTTP(t *testing.T) {
	s := newServer(t)
	d := s.seed()

	w := s.do(http.MethodPost, "/api/loans", s.admin, map[string]any{
		"clientId": d.clientID, "destination": "Guarita",
		"items": []map[string]any{{"materialId": d.ammoID, "quantity": 0}},
	})
	s.expectStatus(w, http.StatusBadRequest)

	w = s.do(http.MethodPost, "/api/loans", s.admin, map[string]any{
		"clientId": d.clientID, "destination": "Guarita",
		"items": []map[string]any{{"materialId": d.ammoID, "quantity": 11}},
	})
	s.expectStatus(w, http.StatusConflict)

	w = s.do(http.MethodGet, "/api/loans?filter=late", s.admin, nil)
	s.expectStatus(w, http.StatusBadRequest)

	// 非 uuid 的 id 不落到数据库
	w = s.do(http.MethodPost, "/api/loans", s.admin, map[string]any{
		"clientId": d.clientID, "destination": "Guarita",
		"items": []map[string]any{{"materialId": "abc", "quantity": 1}},
	})
	s.expectStatus(w, http.StatusBadRequest)
	for _, path := range []string{"/api/loans/abc", "/api/materials/abc", "/api/reports/abc/export"} {
		s.expectStatus(s.do(http.MethodGet, path, s.admin, nil), http.StatusNotFound)
	}
	s.expectStatus(s.do(http.MethodDelete, "/api/clients/abc", s.admin, nil), http.StatusNotFound)
}

func TestAccessLevels(t *testing.T) {
	s := newServer(t)
	leitor := s.operator("leitor", models.LevelReader)

	s.expectStatus(s.do(http.MethodGet, "/api/readiness", leitor, nil), http.StatusOK)
	s.expectStatus(s.do(http.MethodGet, "/api/reports/archive", leitor, nil), http.StatusOK)
	s.expectStatus(s.do(http.MethodGet, "/api/loans", leitor, nil), http.StatusForbidden)
	s.expectStatus(s.do(http.MethodGet, "/api/operators", leitor, nil), http.StatusForbidden)
	s.expectStatus(s.do(http.MethodGet, "/api/readiness", nil, nil), http.StatusUnauthorized)
	s.expectStatus(s.do(http.MethodGet, "/healthz", nil, nil), http.StatusOK)
}

func TestLoginLogout(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodPost, "/auth/login", nil, map[string]string{"username": "chefe", "password": "errada"})
	s.expectStatus(w, http.StatusUnauthorized)

	s.expectStatus(s.do(http.MethodGet, "/auth/whoami", s.admin, nil), http.StatusOK)
	s.expectStatus(s.do(http.MethodPost, "/auth/logout", s.admin, nil), http.StatusOK)
	s.expectStatus(s.do(http.MethodGet, "/auth/whoami", s.admin, nil), http.StatusUnauthorized)
}

func TestDeleteOperatorRevokesSessions(t *testing.T) {
	s := newServer(t)
	ck := s.operator("temp", models.LevelCustodian)
	s.expectStatus(s.do(http.MethodGet, "/auth/whoami", ck, nil), http.StatusOK)

	op, err := s.repo.FindOperatorByUsername(context.Background(), "temp")
	if err != nil {
		t.Fatal(err)
	}
	s.expectStatus(s.do(http.MethodDelete, "/api/operators/"+op.ID, s.admin, nil), http.StatusOK)
	s.expectStatus(s.do(http.MethodGet, "/auth/whoami", ck, nil), http.StatusUnauthorized)

	self, err := s.repo.FindOperatorByUsername(context.Background(), "chefe")
	if err != nil {
		t.Fatal(err)
	}
	s.expectStatus(s.do(http.MethodDelete, "/api/operators/"+self.ID, s.admin, nil), http.StatusBadRequest)
}

func TestReportFlowOverHTTP(t *testing.T) {
	s := newServer(t)
	s.seed()

	var sigs []map[string]string
	for i, name := range []string{"Ten. Alves", "Sgt. Costa", "Cb. Dias"} {
		w := s.do(http.MethodPost, "/api/signers", s.admin, map[string]string{"name": name})
		s.expectStatus(w, http.StatusCreated)
		signer := decode[struct {
			Signer models.Signer `json:"signer"`
		}](t, w).Signer
		w = s.do(http.MethodPost, "/api/signer-roles", s.admin, map[string]string{"name": []string{"Oficial", "Armeiro", "Auxiliar"}[i]})
		s.expectStatus(w, http.StatusCreated)
		role := decode[struct {
			Role models.SignerRole `json:"role"`
		}](t, w).Role
		sigs = append(sigs, map[string]string{"signerId": signer.ID, "roleId": role.ID})
	}

	w := s.do(http.MethodPost, "/api/reports", s.admin, map[string]any{"seal": "S-9", "signatures": sigs})
	s.expectStatus(w, http.StatusCreated)
	rep := decode[struct {
		Report models.ReadinessReport `json:"report"`
	}](t, w).Report
	if rep.Number != 1 {
		t.Errorf("number = %d", rep.Number)
	}

	year := time.Now().UTC().Year()
	w = s.do(http.MethodGet, "/api/reports/archive", s.admin, nil)
	s.expectStatus(w, http.StatusOK)
	years := decode[struct {
		Years []db.YearCount `json:"years"`
	}](t, w).Years
	if len(years) != 1 || years[0].Year != year || years[0].Total != 1 {
		t.Errorf("years = %+v", years)
	}

	s.expectStatus(s.do(http.MethodGet, "/api/reports/archive/abc", s.admin, nil), http.StatusBadRequest)
	s.expectStatus(s.do(http.MethodGet, "/api/reports/"+rep.ID, s.admin, nil), http.StatusOK)

	w = s.do(http.MethodGet, "/api/reports/"+rep.ID+"/export", s.admin, nil)
	s.expectStatus(w, http.StatusOK)
	if ct := w.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("content type = %q", ct)
	}
	if w.Body.Len() == 0 {
		t.Error("empty workbook")
	}
}
