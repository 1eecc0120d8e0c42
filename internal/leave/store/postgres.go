package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"legajo/internal/leave/models"
	"legajo/internal/platform/postgres"
	id "legajo/pkg/domain"
	"legajo/pkg/platform/sentinel"
	"legajo/pkg/platform/tx"
)

const schema = `
CREATE TABLE IF NOT EXISTS feriados (
	id          UUID PRIMARY KEY,
	fecha       DATE NOT NULL CONSTRAINT feriados_fecha_key UNIQUE,
	descripcion VARCHAR(120) NOT NULL
);
CREATE TABLE IF NOT EXISTS planes_trabajo (
	id_empleado UUID PRIMARY KEY,
	lunes       BOOLEAN NOT NULL DEFAULT FALSE,
	martes      BOOLEAN NOT NULL DEFAULT FALSE,
	miercoles   BOOLEAN NOT NULL DEFAULT FALSE,
	jueves      BOOLEAN NOT NULL DEFAULT FALSE,
	viernes     BOOLEAN NOT NULL DEFAULT FALSE,
	sabado      BOOLEAN NOT NULL DEFAULT FALSE,
	domingo     BOOLEAN NOT NULL DEFAULT FALSE,
	hora_inicio VARCHAR(5) NOT NULL,
	hora_fin    VARCHAR(5) NOT NULL
);
CREATE TABLE IF NOT EXISTS tipos_licencia (
	id          UUID PRIMARY KEY,
	descripcion VARCHAR(100) NOT NULL,
	dias        INTEGER,
	pago        BOOLEAN NOT NULL
);
CREATE TABLE IF NOT EXISTS solicitudes (
	id           UUID PRIMARY KEY,
	id_empleado  UUID NOT NULL,
	tipo         VARCHAR(16) NOT NULL,
	id_licencia  UUID REFERENCES tipos_licencia (id),
	fecha_desde  DATE NOT NULL,
	fecha_hasta  DATE NOT NULL,
	estado       VARCHAR(16) NOT NULL,
	comentario   VARCHAR(200) NOT NULL DEFAULT '',
	texto_gestor TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL,
	decided_at   TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS solicitudes_rango_idx ON solicitudes (fecha_desde, fecha_hasta);
CREATE INDEX IF NOT EXISTS solicitudes_empleado_idx ON solicitudes (id_empleado, estado);
CREATE TABLE IF NOT EXISTS vacaciones_otorgadas (
	id               UUID PRIMARY KEY,
	id_empleado      UUID NOT NULL,
	inicio_consumo   DATE NOT NULL,
	fin_consumo      DATE NOT NULL,
	dias_disponibles INTEGER NOT NULL,
	dias_consumidos  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS vacaciones_otorgadas_empleado_idx ON vacaciones_otorgadas (id_empleado, inicio_consumo);
`

const (
	holidayColumns = `id, fecha, descripcion`
	planColumns    = `id_empleado, lunes, martes, miercoles, jueves, viernes, sabado, domingo, hora_inicio, hora_fin`
	typeColumns    = `id, descripcion, dias, pago`
	requestColumns = `id, id_empleado, tipo, id_licencia, fecha_desde, fecha_hasta, estado, comentario, texto_gestor, created_at, decided_at`
	grantColumns   = `id, id_empleado, inicio_consumo, fin_consumo, dias_disponibles, dias_consumidos`
)

// PostgresStore persists the leave domain in PostgreSQL. Every method runs
// inside the transaction carried by ctx, if any.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the leave tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure leave schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) q(ctx context.Context) tx.Querier {
	return tx.Use(ctx, s.db)
}

func (s *PostgresStore) CreateHoliday(ctx context.Context, h *models.Holiday) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO feriados (`+holidayColumns+`) VALUES ($1, $2, $3)`,
		uuid.UUID(h.ID), h.Date, h.Description,
	)
	if err != nil {
		return mapWriteError("create holiday", err)
	}
	return nil
}

func (s *PostgresStore) UpdateHoliday(ctx context.Context, h *models.Holiday) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE feriados SET fecha = $2, descripcion = $3 WHERE id = $1`,
		uuid.UUID(h.ID), h.Date, h.Description,
	)
	if err != nil {
		return mapWriteError("update holiday", err)
	}
	return requireAffected(res, "update holiday")
}

func (s *PostgresStore) DeleteHoliday(ctx context.Context, holidayID id.HolidayID) error {
	res, err := s.q(ctx).ExecContext(ctx, `DELETE FROM feriados WHERE id = $1`, uuid.UUID(holidayID))
	if err != nil {
		return fmt.Errorf("delete holiday: %w", err)
	}
	return requireAffected(res, "delete holiday")
}

func (s *PostgresStore) FindHoliday(ctx context.Context, holidayID id.HolidayID) (*models.Holiday, error) {
	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+holidayColumns+` FROM feriados WHERE id = $1`, uuid.UUID(holidayID))
	h, err := scanHoliday(row)
	if err != nil {
		return nil, findError("find holiday", err)
	}
	return h, nil
}

func (s *PostgresStore) ListHolidays(ctx context.Context, from, to time.Time) ([]*models.Holiday, error) {
	return listRows(ctx, s.q(ctx), "list holidays", scanHoliday,
		`SELECT `+holidayColumns+` FROM feriados WHERE fecha BETWEEN $1 AND $2 ORDER BY fecha`, from, to)
}

func (s *PostgresStore) SaveWorkPlan(ctx context.Context, p *models.WorkPlan) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO planes_trabajo (`+planColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id_empleado) DO UPDATE SET
			lunes = EXCLUDED.lunes, martes = EXCLUDED.martes, miercoles = EXCLUDED.miercoles,
			jueves = EXCLUDED.jueves, viernes = EXCLUDED.viernes, sabado = EXCLUDED.sabado,
			domingo = EXCLUDED.domingo, hora_inicio = EXCLUDED.hora_inicio, hora_fin = EXCLUDED.hora_fin`,
		uuid.UUID(p.EmployeeID), p.Days[0], p.Days[1], p.Days[2], p.Days[3], p.Days[4], p.Days[5], p.Days[6],
		p.Start, p.End,
	)
	if err != nil {
		return fmt.Errorf("save work plan: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindWorkPlan(ctx context.Context, employeeID id.EmployeeID) (*models.WorkPlan, error) {
	var (
		p     models.WorkPlan
		rawID uuid.UUID
	)
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM planes_trabajo WHERE id_empleado = $1`, uuid.UUID(employeeID),
	).Scan(&rawID, &p.Days[0], &p.Days[1], &p.Days[2], &p.Days[3], &p.Days[4], &p.Days[5], &p.Days[6], &p.Start, &p.End)
	if err != nil {
		return nil, findError("find work plan", err)
	}
	p.EmployeeID = id.EmployeeID(rawID)
	return &p, nil
}

func (s *PostgresStore) CreateLeaveType(ctx context.Context, t *models.LeaveType) error {
	var days sql.NullInt32
	if !t.Free() {
		days = sql.NullInt32{Int32: int32(t.MaxDays), Valid: true}
	}
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO tipos_licencia (`+typeColumns+`) VALUES ($1, $2, $3, $4)`,
		uuid.UUID(t.ID), t.Description, days, t.Paid,
	)
	if err != nil {
		return mapWriteError("create leave type", err)
	}
	return nil
}

func (s *PostgresStore) FindLeaveType(ctx context.Context, typeID id.LeaveTypeID) (*models.LeaveType, error) {
	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+typeColumns+` FROM tipos_licencia WHERE id = $1`, uuid.UUID(typeID))
	t, err := scanLeaveType(row)
	if err != nil {
		return nil, findError("find leave type", err)
	}
	return t, nil
}

func (s *PostgresStore) ListLeaveTypes(ctx context.Context) ([]*models.LeaveType, error) {
	return listRows(ctx, s.q(ctx), "list leave types", scanLeaveType,
		`SELECT `+typeColumns+` FROM tipos_licencia ORDER BY descripcion`)
}

func (s *PostgresStore) CreateRequest(ctx context.Context, r *models.Request) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO solicitudes (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		uuid.UUID(r.ID), uuid.UUID(r.EmployeeID), string(r.Kind), nullableType(r.TypeID),
		r.From, r.To, string(r.Status), r.Comment, r.ManagerNote, r.CreatedAt, nullableTime(r.DecidedAt),
	)
	if err != nil {
		return mapWriteError("create leave request", err)
	}
	return nil
}

func (s *PostgresStore) FindRequest(ctx context.Context, requestID id.LeaveRequestID) (*models.Request, error) {
	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+requestColumns+` FROM solicitudes WHERE id = $1`, uuid.UUID(requestID))
	r, err := scanRequest(row)
	if err != nil {
		return nil, findError("find leave request", err)
	}
	return r, nil
}

func (s *PostgresStore) ListRequests(ctx context.Context, f models.RequestFilter) ([]*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM solicitudes WHERE TRUE`
	var args []any
	if !f.EmployeeID.IsNil() {
		args = append(args, uuid.UUID(f.EmployeeID))
		query += fmt.Sprintf(` AND id_empleado = $%d`, len(args))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		query += fmt.Sprintf(` AND estado = $%d`, len(args))
	}
	if !f.From.IsZero() && !f.To.IsZero() {
		args = append(args, models.Day(f.To), models.Day(f.From))
		query += fmt.Sprintf(` AND fecha_desde <= $%d AND fecha_hasta >= $%d`, len(args)-1, len(args))
	}
	query += ` ORDER BY fecha_desde, created_at`
	return listRows(ctx, s.q(ctx), "list leave requests", scanRequest, query, args...)
}

// Decide writes the decision on r and, when consume is set, the grants it
// returns, in one transaction. The employee's grants are locked while
// consume runs so concurrent approvals draw on them one at a time.
func (s *PostgresStore) Decide(ctx context.Context, r *models.Request, consume models.ConsumeFunc) error {
	return tx.Run(ctx, s.db, func(ctx context.Context) error {
		q := s.q(ctx)
		res, err := q.ExecContext(ctx, `
			UPDATE solicitudes SET estado = $2, texto_gestor = $3, decided_at = $4
			WHERE id = $1 AND estado = $5`,
			uuid.UUID(r.ID), string(r.Status), r.ManagerNote, nullableTime(r.DecidedAt), string(models.StatusPending),
		)
		if err != nil {
			return fmt.Errorf("decide leave request: %w", err)
		}
		if err := requireAffected(res, "decide leave request"); err != nil {
			if !errors.Is(err, sentinel.ErrNotFound) {
				return err
			}
			var exists bool
			if qerr := q.QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM solicitudes WHERE id = $1)`, uuid.UUID(r.ID)).Scan(&exists); qerr != nil {
				return fmt.Errorf("decide leave request: %w", qerr)
			}
			if exists {
				return sentinel.ErrModified
			}
			return err
		}
		if consume == nil {
			return nil
		}

		current, err := listRows(ctx, q, "lock vacation grants", scanGrant,
			`SELECT `+grantColumns+` FROM vacaciones_otorgadas WHERE id_empleado = $1
			 ORDER BY inicio_consumo, fin_consumo FOR UPDATE`, uuid.UUID(r.EmployeeID))
		if err != nil {
			return err
		}
		for _, g := range consume(current) {
			if err := s.SaveGrant(ctx, g); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PostgresStore) ListGrants(ctx context.Context, employeeID id.EmployeeID) ([]*models.Grant, error) {
	return listRows(ctx, s.q(ctx), "list vacation grants", scanGrant,
		`SELECT `+grantColumns+` FROM vacaciones_otorgadas WHERE id_empleado = $1 ORDER BY inicio_consumo, fin_consumo`,
		uuid.UUID(employeeID))
}

func (s *PostgresStore) SaveGrant(ctx context.Context, g *models.Grant) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO vacaciones_otorgadas (`+grantColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			inicio_consumo = EXCLUDED.inicio_consumo, fin_consumo = EXCLUDED.fin_consumo,
			dias_disponibles = EXCLUDED.dias_disponibles, dias_consumidos = EXCLUDED.dias_consumidos`,
		uuid.UUID(g.ID), uuid.UUID(g.EmployeeID), g.From, g.To, g.Available, g.Consumed,
	)
	if err != nil {
		return fmt.Errorf("save vacation grant: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func listRows[T any](ctx context.Context, q tx.Querier, op string, scan func(scanner) (*T, error), query string, args ...any) ([]*T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]*T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func scanHoliday(row scanner) (*models.Holiday, error) {
	var (
		h     models.Holiday
		rawID uuid.UUID
	)
	if err := row.Scan(&rawID, &h.Date, &h.Description); err != nil {
		return nil, err
	}
	h.ID = id.HolidayID(rawID)
	h.Date = models.Day(h.Date)
	return &h, nil
}

func scanLeaveType(row scanner) (*models.LeaveType, error) {
	var (
		t     models.LeaveType
		rawID uuid.UUID
		days  sql.NullInt32
	)
	if err := row.Scan(&rawID, &t.Description, &days, &t.Paid); err != nil {
		return nil, err
	}
	t.ID = id.LeaveTypeID(rawID)
	if days.Valid {
		t.MaxDays = int(days.Int32)
	}
	return &t, nil
}

func scanRequest(row scanner) (*models.Request, error) {
	var (
		r             models.Request
		rawID, rawEmp uuid.UUID
		rawType       uuid.NullUUID
		kind, status  string
		decidedAt     sql.NullTime
	)
	err := row.Scan(&rawID, &rawEmp, &kind, &rawType, &r.From, &r.To, &status,
		&r.Comment, &r.ManagerNote, &r.CreatedAt, &decidedAt)
	if err != nil {
		return nil, err
	}
	r.ID = id.LeaveRequestID(rawID)
	r.EmployeeID = id.EmployeeID(rawEmp)
	if rawType.Valid {
		r.TypeID = id.LeaveTypeID(rawType.UUID)
	}
	r.Kind = models.Kind(kind)
	r.Status = models.Status(status)
	r.From, r.To = models.Day(r.From), models.Day(r.To)
	r.CreatedAt = r.CreatedAt.UTC()
	if decidedAt.Valid {
		r.DecidedAt = decidedAt.Time.UTC()
	}
	return &r, nil
}

func scanGrant(row scanner) (*models.Grant, error) {
	var (
		g             models.Grant
		rawID, rawEmp uuid.UUID
	)
	if err := row.Scan(&rawID, &rawEmp, &g.From, &g.To, &g.Available, &g.Consumed); err != nil {
		return nil, err
	}
	g.ID = id.VacationGrantID(rawID)
	g.EmployeeID = id.EmployeeID(rawEmp)
	g.From, g.To = models.Day(g.From), models.Day(g.To)
	return &g, nil
}

func nullableType(typeID id.LeaveTypeID) uuid.NullUUID {
	if typeID.IsNil() {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(typeID), Valid: true}
}

func nullableTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func findError(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func mapWriteError(op string, err error) error {
	if _, ok := postgres.IsUniqueViolation(err); ok {
		return fmt.Errorf("%s: %w", op, sentinel.ErrAlreadyUsed)
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
