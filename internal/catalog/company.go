package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"jobly/api-service/internal/sqlbuilder"
)

// Company is the JSON shape of a companies row.
type Company struct {
	Handle       string  `json:"handle"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	NumEmployees *int    `json:"numEmployees"`
	LogoURL      *string `json:"logoUrl"`
}

// CompanyDetail is a company with the jobs it posts.
type CompanyDetail struct {
	Company
	Jobs []CompanyJob `json:"jobs"`
}

// CompanyJob is a job as listed under its company.
type CompanyJob struct {
	ID     int     `json:"id"`
	Title  string  `json:"title"`
	Salary *int    `json:"salary"`
	Equity *string `json:"equity"`
}

// NewCompany is the body of POST /companies.
type NewCompany struct {
	Handle       string  `json:"handle" validate:"required,min=1,max=25,handle"`
	Name         string  `json:"name" validate:"required,min=1"`
	Description  string  `json:"description" validate:"required"`
	NumEmployees *int    `json:"numEmployees" validate:"omitempty,min=0,max=2147483647"`
	LogoURL      *string `json:"logoUrl" validate:"omitempty,url"`
}

// CompanyUpdate is the body of PATCH /companies/{handle}.
type CompanyUpdate struct {
	Name         *string `json:"name" validate:"omitempty,min=1"`
	Description  *string `json:"description"`
	NumEmployees *int    `json:"numEmployees" validate:"omitempty,min=0,max=2147483647"`
	LogoURL      *string `json:"logoUrl" validate:"omitempty,url"`
}

// companyColumns is the allow-list of updatable company fields.
var companyColumns = sqlbuilder.Columns{
	"name":         "name",
	"description":  "description",
	"numEmployees": "num_employees",
	"logoUrl":      "logo_url",
}

// Patch lists the supplied fields in declaration order.
func (u CompanyUpdate) Patch() sqlbuilder.Patch {
	var p sqlbuilder.Patch
	if u.Name != nil {
		p.Set("name", *u.Name)
	}
	if u.Description != nil {
		p.Set("description", *u.Description)
	}
	if u.NumEmployees != nil {
		p.Set("numEmployees", *u.NumEmployees)
	}
	if u.LogoURL != nil {
		p.Set("logoUrl", *u.LogoURL)
	}
	return p
}

const companyCols = `handle, name, description, num_employees, logo_url`

func scanCompany(row pgx.Row, c *Company) error {
	return row.Scan(&c.Handle, &c.Name, &c.Description, &c.NumEmployees, &c.LogoURL)
}

// CreateCompany inserts a company. A duplicate handle or name is a client error.
func (s *Service) CreateCompany(ctx context.Context, in NewCompany) (*Company, error) {
	var c Company
	err := scanCompany(s.db.QueryRow(ctx,
		`INSERT INTO companies (handle, name, description, num_employees, logo_url)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+companyCols,
		in.Handle, in.Name, in.Description, in.NumEmployees, in.LogoURL,
	), &c)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return nil, badRequest("Duplicate company: %s", in.Handle)
		}
		return nil, fmt.Errorf("createCompany: %w", err)
	}

	s.publish(ctx, "EVENT_COMPANY_CREATED", map[string]any{"handle": c.Handle})
	return &c, nil
}

// FindCompanies returns the companies matching f, ordered by name.
func (s *Service) FindCompanies(ctx context.Context, f CompanyFilter) ([]Company, error) {
	where := f.Compile()
	rows, err := s.db.Query(ctx,
		`SELECT `+companyCols+` FROM companies`+where.Clause()+` ORDER BY name`,
		where.Values()...,
	)
	if err != nil {
		return nil, fmt.Errorf("findCompanies query: %w", err)
	}
	defer rows.Close()

	companies := make([]Company, 0)
	for rows.Next() {
		var c Company
		if err := scanCompany(rows, &c); err != nil {
			return nil, fmt.Errorf("findCompanies scan: %w", err)
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// GetCompany returns a company and its jobs, ordered by job id.
func (s *Service) GetCompany(ctx context.Context, handle string) (*CompanyDetail, error) {
	var c CompanyDetail
	err := scanCompany(s.db.QueryRow(ctx,
		`SELECT `+companyCols+` FROM companies WHERE handle = $1`,
		handle,
	), &c.Company)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("No company: %s", handle)
	}
	if err != nil {
		return nil, fmt.Errorf("getCompany: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, title, salary, equity::text
		 FROM jobs
		 WHERE company_handle = $1
		 ORDER BY id`,
		handle,
	)
	if err != nil {
		return nil, fmt.Errorf("getCompany jobs query: %w", err)
	}
	defer rows.Close()

	c.Jobs = make([]CompanyJob, 0)
	for rows.Next() {
		var j CompanyJob
		if err := rows.Scan(&j.ID, &j.Title, &j.Salary, &j.Equity); err != nil {
			return nil, fmt.Errorf("getCompany jobs scan: %w", err)
		}
		c.Jobs = append(c.Jobs, j)
	}
	return &c, rows.Err()
}

// UpdateCompany applies a partial update. The handle cannot be changed.
func (s *Service) UpdateCompany(ctx context.Context, handle string, patch sqlbuilder.Patch) (*Company, error) {
	upd, err := sqlbuilder.PartialUpdate(patch, companyColumns)
	if err != nil {
		return nil, patchError(err)
	}

	var c Company
	err = scanCompany(s.db.QueryRow(ctx,
		`UPDATE companies
		 SET `+upd.SetCols+`
		 WHERE handle = `+upd.NextPlaceholder()+`
		 RETURNING `+companyCols,
		upd.Args(handle)...,
	), &c)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("No company: %s", handle)
	}
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return nil, badRequest("Duplicate company name")
		}
		return nil, fmt.Errorf("updateCompany: %w", err)
	}

	s.publish(ctx, "EVENT_COMPANY_UPDATED", map[string]any{"handle": c.Handle, "fields": patch.Fields()})
	return &c, nil
}

// RemoveCompany deletes a company and, by cascade, its jobs.
func (s *Service) RemoveCompany(ctx context.Context, handle string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM companies WHERE handle = $1`, handle)
	if err != nil {
		return fmt.Errorf("removeCompany: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("No company: %s", handle)
	}

	s.publish(ctx, "EVENT_COMPANY_DELETED", map[string]any{"handle": handle})
	return nil
}
