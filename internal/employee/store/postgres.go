package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"legajo/internal/employee/models"
	"legajo/internal/platform/postgres"
	"legajo/pkg/cuil"
	id "legajo/pkg/domain"
	"legajo/pkg/platform/sentinel"
)

const schema = `
CREATE TABLE IF NOT EXISTS empleados (
	id          UUID PRIMARY KEY,
	nombres     VARCHAR(40) NOT NULL,
	apellido    VARCHAR(40) NOT NULL,
	dni         CHAR(8) NOT NULL CONSTRAINT empleados_dni_key UNIQUE,
	cuil        VARCHAR(12) NOT NULL CONSTRAINT empleados_cuil_key UNIQUE,
	id_sexo     VARCHAR(8) NOT NULL,
	fecha_nac   DATE NOT NULL,
	telefono    VARCHAR(20) NOT NULL DEFAULT '',
	dr_personal VARCHAR(40) NOT NULL DEFAULT '',
	num_hijos   INTEGER NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS empleados_apellido_idx ON empleados (apellido, nombres);
`

const columns = `id, nombres, apellido, dni, cuil, id_sexo, fecha_nac, telefono, dr_personal, num_hijos, created_at, updated_at`

// PostgresStore persists employees in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed employee store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the empleados table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure employee schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, e *models.Employee) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO empleados (`+columns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		uuid.UUID(e.ID), e.FirstNames, e.LastName, string(e.DNI), e.CUIL, string(e.Sex),
		e.BirthDate, e.Phone, e.Address, e.Children, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return mapWriteError("create employee", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, employeeID id.EmployeeID) (*models.Employee, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM empleados WHERE id = $1`, uuid.UUID(employeeID))
	e, err := scanEmployee(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find employee by id: %w", err)
	}
	return e, nil
}

// Update writes e only if the stored row still has expectedUpdatedAt.
func (s *PostgresStore) Update(ctx context.Context, e *models.Employee, expectedUpdatedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE empleados
		SET nombres = $2, apellido = $3, dni = $4, cuil = $5, id_sexo = $6,
		    fecha_nac = $7, telefono = $8, dr_personal = $9, num_hijos = $10, updated_at = $11
		WHERE id = $1 AND updated_at = $12`,
		uuid.UUID(e.ID), e.FirstNames, e.LastName, string(e.DNI), e.CUIL, string(e.Sex),
		e.BirthDate, e.Phone, e.Address, e.Children, e.UpdatedAt, expectedUpdatedAt,
	)
	if err != nil {
		return mapWriteError("update employee", err)
	}
	err = requireAffected(res, "update employee")
	if !errors.Is(err, sentinel.ErrNotFound) {
		return err
	}
	var exists bool
	if qerr := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM empleados WHERE id = $1)`, uuid.UUID(e.ID)).Scan(&exists); qerr != nil {
		return fmt.Errorf("update employee: %w", qerr)
	}
	if exists {
		return sentinel.ErrModified
	}
	return err
}

func (s *PostgresStore) Delete(ctx context.Context, employeeID id.EmployeeID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM empleados WHERE id = $1`, uuid.UUID(employeeID))
	if err != nil {
		return fmt.Errorf("delete employee: %w", err)
	}
	return requireAffected(res, "delete employee")
}

// Search matches a DNI prefix or a case-insensitive name fragment.
func (s *PostgresStore) Search(ctx context.Context, q models.SearchQuery) ([]*models.Employee, error) {
	query := `SELECT ` + columns + ` FROM empleados`
	var args []any
	switch {
	case q.DNIPrefix != "":
		query += ` WHERE dni LIKE $1`
		args = append(args, escapeLike(q.DNIPrefix)+"%")
	case q.Name != "":
		query += ` WHERE apellido ILIKE $1 OR nombres ILIKE $1`
		args = append(args, "%"+escapeLike(q.Name)+"%")
	}
	query += ` ORDER BY apellido, nombres, dni`
	if q.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, q.Limit)
	}
	return s.list(ctx, "search employees", query, args...)
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]*models.Employee, error) {
	return s.list(ctx, "list employees", `SELECT `+columns+` FROM empleados ORDER BY apellido, nombres, dni`)
}

func (s *PostgresStore) list(ctx context.Context, op, query string, args ...any) ([]*models.Employee, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []*models.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row scanner) (*models.Employee, error) {
	var (
		e       models.Employee
		rawID   uuid.UUID
		dni     string
		sexCode string
	)
	err := row.Scan(&rawID, &e.FirstNames, &e.LastName, &dni, &e.CUIL, &sexCode,
		&e.BirthDate, &e.Phone, &e.Address, &e.Children, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.ID = id.EmployeeID(rawID)
	e.DNI = id.NationalID(strings.TrimSpace(dni))
	e.Sex = cuil.Sex(sexCode)
	e.BirthDate = e.BirthDate.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return &e, nil
}

func mapWriteError(op string, err error) error {
	if constraint, ok := postgres.IsUniqueViolation(err); ok {
		switch constraint {
		case "empleados_dni_key":
			return &ConflictError{Field: models.FieldDNI}
		case "empleados_cuil_key":
			return &ConflictError{Field: models.FieldCUIL}
		default:
			return fmt.Errorf("%s: %w", op, sentinel.ErrAlreadyUsed)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
