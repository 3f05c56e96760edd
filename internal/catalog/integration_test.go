package catalog_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobly/api-service/internal/catalog"
	"jobly/api-service/internal/db"
)

// The PostgreSQL tests run only when TEST_DATABASE_URL points at a
// disposable database. Every test runs inside a transaction that is rolled
// back, on top of the fixtures created once by seed.

var (
	seedOnce sync.Once
	seedPool *pgxpool.Pool
	seedErr  error
	jobIDs   []int
)

func seed(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := db.NewPostgresPool(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(ctx, pool); err != nil {
		return nil, err
	}

	if _, err := pool.Exec(ctx, `TRUNCATE applications, jobs, users, companies RESTART IDENTITY CASCADE`); err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx,
		`INSERT INTO companies (handle, name, num_employees, description, logo_url)
		 VALUES ('c1', 'C1', 1, 'Desc1', 'http://c1.img'),
		        ('c2', 'C2', 2, 'Desc2', 'http://c2.img'),
		        ('c3', 'C3', 3, 'Desc3', 'http://c3.img')`); err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx,
		`INSERT INTO users (username, password, first_name, last_name, email)
		 VALUES ('u1', 'hash1', 'U1F', 'U1L', 'u1@email.com'),
		        ('u2', 'hash2', 'U2F', 'U2L', 'u2@email.com')`); err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx,
		`INSERT INTO jobs (title, salary, equity, company_handle)
		 VALUES ('title1', 100000, '0.5', 'c1'),
		        ('title2', 200000, '1', 'c2'),
		        ('title3', 300000, '0.8', 'c3')
		 RETURNING id`)
	if err != nil {
		return nil, err
	}
	jobIDs, err = pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, err
	}

	if _, err := pool.Exec(ctx,
		`INSERT INTO applications (username, job_id) VALUES ('u1', $1), ('u1', $2)`,
		jobIDs[1], jobIDs[2]); err != nil {
		return nil, err
	}
	return pool, nil
}

// fakeHasher keeps the tests fast. BcryptHasher has its own test.
type fakeHasher struct{}

func (fakeHasher) Hash(pw string) (string, error) { return "hashed:" + pw, nil }
func (fakeHasher) Compare(hash, pw string) error {
	if hash != "hashed:"+pw {
		return errors.New("mismatch")
	}
	return nil
}

func newService(t *testing.T) (*catalog.Service, pgx.Tx) {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	seedOnce.Do(func() { seedPool, seedErr = seed(ctx, dsn) })
	if seedErr != nil {
		t.Fatalf("seed: %v", seedErr)
	}

	tx, err := seedPool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	t.Cleanup(func() { _ = tx.Rollback(context.Background()) })
	return catalog.NewService(tx, nil, fakeHasher{}), tx
}

func sp(s string) *string { return &s }

var allListings = []catalog.JobListing{
	{Title: "title1", Salary: intp(100000), Equity: sp("0.5"), CompanyHandle: "c1"},
	{Title: "title2", Salary: intp(200000), Equity: sp("1"), CompanyHandle: "c2"},
	{Title: "title3", Salary: intp(300000), Equity: sp("0.8"), CompanyHandle: "c3"},
}

// ── Jobs ───────────────────────────────────────────────────────────────────

func TestJobCreate(t *testing.T) {
	svc, tx := newService(t)
	ctx := context.Background()

	job, err := svc.CreateJob(ctx, catalog.NewJob{Title: "New Job", Salary: intp(100000), Equity: sp("0"), CompanyHandle: "c1"})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if job.ID == 0 {
		t.Error("CreateJob returned no id")
	}

	var title, equity, handle string
	var salary int
	err = tx.QueryRow(ctx,
		`SELECT title, salary, equity::text, company_handle FROM jobs WHERE id = $1`, job.ID,
	).Scan(&title, &salary, &equity, &handle)
	if err != nil {
		t.Fatalf("select created job: %v", err)
	}
	if title != "New Job" || salary != 100000 || equity != "0" || handle != "c1" {
		t.Errorf("stored job = %s/%d/%s/%s", title, salary, equity, handle)
	}
}

func TestJobCreate_UnknownCompany(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.CreateJob(context.Background(), catalog.NewJob{Title: "x", CompanyHandle: "nope"})
	var ve *catalog.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("CreateJob err = %v, want *ValidationError", err)
	}
}

func TestJobUpdate(t *testing.T) {
	svc, _ := newService(t)
	upd := catalog.JobUpdate{Title: sp("New"), Salary: intp(1000000), Equity: sp("0.6")}

	job, err := svc.UpdateJob(context.Background(), jobIDs[0], upd.Patch())
	if err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}
	want := &catalog.Job{ID: jobIDs[0], Title: "New", Salary: intp(1000000), Equity: sp("0.6"), CompanyHandle: "c1"}
	if diff := cmp.Diff(want, job); diff != "" {
		t.Errorf("UpdateJob mismatch (-want +got):\n%s", diff)
	}
}

func TestJobUpdate_NotFound(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.UpdateJob(context.Background(), 0, catalog.JobUpdate{Title: sp("test")}.Patch())
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("UpdateJob(0) err = %v, want ErrNotFound", err)
	}
}

func TestJobUpdate_NoData(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.UpdateJob(context.Background(), jobIDs[0], catalog.JobUpdate{}.Patch())
	var ve *catalog.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("UpdateJob(empty) err = %v, want *ValidationError", err)
	}
}

func TestJobFindAll(t *testing.T) {
	cases := []struct {
		name   string
		filter catalog.JobFilter
		want   []catalog.JobListing
	}{
		{"no filter", catalog.JobFilter{}, allListings},
		{"title", catalog.JobFilter{Title: "TITLE1"}, allListings[:1]},
		{"min salary", catalog.JobFilter{MinSalary: intp(150000)}, allListings[1:]},
		{"min salary inclusive", catalog.JobFilter{MinSalary: intp(200000)}, allListings[1:]},
		{"has equity", catalog.JobFilter{HasEquity: boolp(true)}, allListings},
		{"no equity", catalog.JobFilter{HasEquity: boolp(false)}, []catalog.JobListing{}},
		{"combined", catalog.JobFilter{Title: "title", MinSalary: intp(250000), HasEquity: boolp(true)}, allListings[2:]},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			svc, _ := newService(t)
			got, err := svc.FindJobs(context.Background(), c.filter)
			if err != nil {
				t.Fatalf("FindJobs: %v", err)
			}
			if diff := cmp.Diff(c.want, got); diff != "" {
				t.Errorf("FindJobs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// "0" and "0.0" are the same NUMERIC value, so a zero-equity job written as
// "0" matches hasEquity=false.
func TestJobFindAll_ZeroEquitySpellings(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	if _, err := svc.CreateJob(ctx, catalog.NewJob{Title: "zero", Equity: sp("0"), CompanyHandle: "c1"}); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	got, err := svc.FindJobs(ctx, catalog.JobFilter{HasEquity: boolp(false)})
	if err != nil {
		t.Fatalf("FindJobs: %v", err)
	}
	if len(got) != 1 || got[0].Title != "zero" {
		t.Errorf("FindJobs(hasEquity=false) = %+v, want the zero-equity job", got)
	}
}

func TestJobGet(t *testing.T) {
	svc, _ := newService(t)
	job, err := svc.GetJob(context.Background(), jobIDs[0])
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	want := &catalog.JobDetail{
		ID:     jobIDs[0],
		Title:  "title1",
		Salary: intp(100000),
		Equity: sp("0.5"),
		Company: &catalog.Company{
			Handle:       "c1",
			Name:         "C1",
			Description:  "Desc1",
			NumEmployees: intp(1),
			LogoURL:      sp("http://c1.img"),
		},
	}
	if diff := cmp.Diff(want, job); diff != "" {
		t.Errorf("GetJob mismatch (-want +got):\n%s", diff)
	}
}

func TestJobGet_NotFound(t *testing.T) {
	svc, _ := newService(t)
	job, err := svc.GetJob(context.Background(), 0)
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("GetJob(0) err = %v, want ErrNotFound", err)
	}
	if job != nil {
		t.Errorf("GetJob(0) returned %+v alongside the error", job)
	}
}

func TestJobRemove(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if err := svc.RemoveJob(ctx, jobIDs[0]); err != nil {
		t.Fatalf("RemoveJob: %v", err)
	}
	got, err := svc.FindJobs(ctx, catalog.JobFilter{})
	if err != nil {
		t.Fatalf("FindJobs: %v", err)
	}
	if diff := cmp.Diff(allListings[1:], got); diff != "" {
		t.Errorf("FindJobs after remove mismatch (-want +got):\n%s", diff)
	}

	if err := svc.RemoveJob(ctx, jobIDs[0]); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("second RemoveJob err = %v, want ErrNotFound", err)
	}
}

// ── Companies ──────────────────────────────────────────────────────────────

func TestCompanyCreate_Duplicate(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.CreateCompany(context.Background(), catalog.NewCompany{Handle: "c1", Name: "Other", Description: "d"})
	var ve *catalog.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("CreateCompany(dup) err = %v, want *ValidationError", err)
	}
}

func TestCompanyFindAll_Filters(t *testing.T) {
	svc, _ := newService(t)
	got, err := svc.FindCompanies(context.Background(), catalog.CompanyFilter{MinEmployees: intp(2), MaxEmployees: intp(3)})
	if err != nil {
		t.Fatalf("FindCompanies: %v", err)
	}
	var handles []string
	for _, c := range got {
		handles = append(handles, c.Handle)
	}
	if diff := cmp.Diff([]string{"c2", "c3"}, handles); diff != "" {
		t.Errorf("FindCompanies mismatch (-want +got):\n%s", diff)
	}
}

func TestCompanyGet_WithJobs(t *testing.T) {
	svc, _ := newService(t)
	c, err := svc.GetCompany(context.Background(), "c1")
	if err != nil {
		t.Fatalf("GetCompany: %v", err)
	}
	want := []catalog.CompanyJob{{ID: jobIDs[0], Title: "title1", Salary: intp(100000), Equity: sp("0.5")}}
	if diff := cmp.Diff(want, c.Jobs); diff != "" {
		t.Errorf("company jobs mismatch (-want +got):\n%s", diff)
	}
}

func TestCompanyUpdate(t *testing.T) {
	svc, _ := newService(t)
	upd := catalog.CompanyUpdate{NumEmployees: intp(10), LogoURL: sp("http://new.img")}
	c, err := svc.UpdateCompany(context.Background(), "c1", upd.Patch())
	if err != nil {
		t.Fatalf("UpdateCompany: %v", err)
	}
	if *c.NumEmployees != 10 || *c.LogoURL != "http://new.img" || c.Name != "C1" {
		t.Errorf("UpdateCompany = %+v", c)
	}

	if _, err := svc.UpdateCompany(context.Background(), "nope", upd.Patch()); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("UpdateCompany(nope) err = %v, want ErrNotFound", err)
	}
}

func TestCompanyRemove_Twice(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	if err := svc.RemoveCompany(ctx, "c3"); err != nil {
		t.Fatalf("RemoveCompany: %v", err)
	}
	if err := svc.RemoveCompany(ctx, "c3"); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("second RemoveCompany err = %v, want ErrNotFound", err)
	}
}

// ── Users & applications ───────────────────────────────────────────────────

func TestUserCreateAndUpdate(t *testing.T) {
	svc, tx := newService(t)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, catalog.NewUser{
		Username: "new", Password: "password", FirstName: "F", LastName: "L", Email: "new@email.com",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.IsAdmin {
		t.Error("new user should not be admin")
	}

	if _, err := svc.UpdateUser(ctx, "new", catalog.UserUpdate{Password: sp("secret")}.Patch()); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	var hash string
	if err := tx.QueryRow(ctx, `SELECT password FROM users WHERE username = 'new'`).Scan(&hash); err != nil {
		t.Fatalf("select password: %v", err)
	}
	if hash != "hashed:secret" {
		t.Errorf("stored password = %q, want the hashed value", hash)
	}

	if _, err := svc.CreateUser(ctx, catalog.NewUser{Username: "new", Password: "password", FirstName: "F", LastName: "L", Email: "x@y.z"}); err == nil {
		t.Error("CreateUser with a duplicate username should fail")
	}
}

func TestUserGet_WithApplications(t *testing.T) {
	svc, _ := newService(t)
	u, err := svc.GetUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	want := []catalog.Application{
		{Username: "u1", JobID: jobIDs[1], State: catalog.StateApplied},
		{Username: "u1", JobID: jobIDs[2], State: catalog.StateApplied},
	}
	if diff := cmp.Diff(want, u.Applications); diff != "" {
		t.Errorf("applications mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyAndMove(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	a, err := svc.Apply(ctx, "u2", jobIDs[0], "INTERESTED")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if a.State != catalog.StateInterested {
		t.Errorf("state = %s, want INTERESTED", a.State)
	}

	if _, err := svc.Apply(ctx, "u2", 0, ""); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("Apply(job 0) err = %v, want ErrNotFound", err)
	}
	if _, err := svc.Apply(ctx, "ghost", jobIDs[0], ""); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("Apply(ghost) err = %v, want ErrNotFound", err)
	}

	if _, err := svc.MoveApplication(ctx, "u2", jobIDs[0], "ACCEPTED"); err == nil {
		t.Error("INTERESTED → ACCEPTED should be rejected")
	}
	a, err = svc.MoveApplication(ctx, "u2", jobIDs[0], "APPLIED")
	if err != nil {
		t.Fatalf("MoveApplication: %v", err)
	}
	if a.State != catalog.StateApplied {
		t.Errorf("state = %s, want APPLIED", a.State)
	}
	if _, err := svc.MoveApplication(ctx, "u2", jobIDs[1], "APPLIED"); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("MoveApplication(missing) err = %v, want ErrNotFound", err)
	}

	// A unique violation aborts the transaction, so this check runs last.
	if _, err := svc.Apply(ctx, "u2", jobIDs[0], ""); err == nil {
		t.Error("applying twice should fail")
	}
}

func TestStats(t *testing.T) {
	svc, _ := newService(t)
	st, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := catalog.Stats{Companies: 3, Jobs: 3, Users: 2, Applications: 2}
	if diff := cmp.Diff(want, st); diff != "" {
		t.Errorf("Stats mismatch (-want +got):\n%s", diff)
	}
}
