package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"jobly/api-service/internal/sqlbuilder"
)

// Job is the JSON shape returned by create and update.
type Job struct {
	ID            int     `json:"id"`
	Title         string  `json:"title"`
	Salary        *int    `json:"salary"`
	Equity        *string `json:"equity"`
	CompanyHandle string  `json:"companyHandle"`
}

// JobListing is a job as returned by the list endpoint: no id, no company.
type JobListing struct {
	Title         string  `json:"title"`
	Salary        *int    `json:"salary"`
	Equity        *string `json:"equity"`
	CompanyHandle string  `json:"companyHandle"`
}

// JobDetail is a single job with its company nested.
type JobDetail struct {
	ID      int      `json:"id"`
	Title   string   `json:"title"`
	Salary  *int     `json:"salary"`
	Equity  *string  `json:"equity"`
	Company *Company `json:"company"`
}

// NewJob is the body of POST /jobs.
type NewJob struct {
	Title         string  `json:"title" validate:"required,min=1"`
	Salary        *int    `json:"salary" validate:"omitempty,min=0,max=2147483647"`
	Equity        *string `json:"equity" validate:"omitempty,equity"`
	CompanyHandle string  `json:"companyHandle" validate:"required,min=1,max=25"`
}

// JobUpdate is the body of PATCH /jobs/{id}. The company cannot be changed.
type JobUpdate struct {
	Title  *string `json:"title" validate:"omitempty,min=1"`
	Salary *int    `json:"salary" validate:"omitempty,min=0,max=2147483647"`
	Equity *string `json:"equity" validate:"omitempty,equity"`
}

// jobColumns is the allow-list of updatable job fields.
var jobColumns = sqlbuilder.Columns{
	"title":  "title",
	"salary": "salary",
	"equity": "equity",
}

// Patch lists the supplied fields in declaration order.
func (u JobUpdate) Patch() sqlbuilder.Patch {
	var p sqlbuilder.Patch
	if u.Title != nil {
		p.Set("title", *u.Title)
	}
	if u.Salary != nil {
		p.Set("salary", *u.Salary)
	}
	if u.Equity != nil {
		p.Set("equity", *u.Equity)
	}
	return p
}

// Equity is NUMERIC in the database and travels as text both ways.
const jobCols = `id, title, salary, equity::text, company_handle`

func scanJob(row pgx.Row, j *Job) error {
	return row.Scan(&j.ID, &j.Title, &j.Salary, &j.Equity, &j.CompanyHandle)
}

// CreateJob inserts a job and returns it with its server-assigned id.
func (s *Service) CreateJob(ctx context.Context, in NewJob) (*Job, error) {
	var j Job
	err := scanJob(s.db.QueryRow(ctx,
		`INSERT INTO jobs (title, salary, equity, company_handle)
		 VALUES ($1, $2, $3::numeric, $4)
		 RETURNING `+jobCols,
		in.Title, in.Salary, in.Equity, in.CompanyHandle,
	), &j)
	if err != nil {
		switch pgCode(err) {
		case pgForeignKeyViolation:
			return nil, badRequest("No company: %s", in.CompanyHandle)
		case pgCheckViolation:
			return nil, badRequest("Invalid job: %s", err)
		}
		return nil, fmt.Errorf("createJob: %w", err)
	}

	s.publish(ctx, "EVENT_JOB_CREATED", map[string]any{"jobId": j.ID, "companyHandle": j.CompanyHandle})
	return &j, nil
}

// FindJobs returns the jobs matching f, ordered by title.
func (s *Service) FindJobs(ctx context.Context, f JobFilter) ([]JobListing, error) {
	where := f.Compile()
	rows, err := s.db.Query(ctx,
		`SELECT title, salary, equity::text, company_handle
		 FROM jobs`+where.Clause()+`
		 ORDER BY title`,
		where.Values()...,
	)
	if err != nil {
		return nil, fmt.Errorf("findJobs query: %w", err)
	}
	defer rows.Close()

	jobs := make([]JobListing, 0)
	for rows.Next() {
		var j JobListing
		if err := rows.Scan(&j.Title, &j.Salary, &j.Equity, &j.CompanyHandle); err != nil {
			return nil, fmt.Errorf("findJobs scan: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// GetJob returns a job with its company.
func (s *Service) GetJob(ctx context.Context, id int) (*JobDetail, error) {
	var (
		j      Job
		detail JobDetail
	)
	err := scanJob(s.db.QueryRow(ctx, `SELECT `+jobCols+` FROM jobs WHERE id = $1`, id), &j)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("No job: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getJob: %w", err)
	}

	var c Company
	err = scanCompany(s.db.QueryRow(ctx,
		`SELECT `+companyCols+` FROM companies WHERE handle = $1`,
		j.CompanyHandle,
	), &c)
	if err != nil {
		return nil, fmt.Errorf("getJob company: %w", err)
	}

	detail.ID, detail.Title, detail.Salary, detail.Equity = j.ID, j.Title, j.Salary, j.Equity
	detail.Company = &c
	return &detail, nil
}

// UpdateJob applies a partial update.
// Returns ErrNotFound if no job has the given id.
func (s *Service) UpdateJob(ctx context.Context, id int, patch sqlbuilder.Patch) (*Job, error) {
	upd, err := sqlbuilder.PartialUpdate(patch, jobColumns)
	if err != nil {
		return nil, patchError(err)
	}

	var j Job
	err = scanJob(s.db.QueryRow(ctx,
		`UPDATE jobs
		 SET `+upd.SetCols+`
		 WHERE id = `+upd.NextPlaceholder()+`
		 RETURNING `+jobCols,
		upd.Args(id)...,
	), &j)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("No job: %d", id)
	}
	if err != nil {
		if pgCode(err) == pgCheckViolation {
			return nil, badRequest("Invalid job: %s", err)
		}
		return nil, fmt.Errorf("updateJob: %w", err)
	}

	s.publish(ctx, "EVENT_JOB_UPDATED", map[string]any{"jobId": j.ID, "fields": patch.Fields()})
	return &j, nil
}

// RemoveJob deletes a job. Returns ErrNotFound if no job has the given id.
func (s *Service) RemoveJob(ctx context.Context, id int) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("removeJob: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("No job: %d", id)
	}

	s.publish(ctx, "EVENT_JOB_DELETED", map[string]any{"jobId": id})
	return nil
}
