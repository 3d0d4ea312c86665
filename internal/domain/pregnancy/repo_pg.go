package pregnancy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/anc/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// =========== Patient Repository ===========

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, user_id, name, date_of_birth, phone, address, district, sub_district,
	latitude, longitude, last_menstrual_period, gravida, para, abortus,
	medical_history, risk_factors, active, status, delivery, history,
	created_at, updated_at`

func (r *patientRepoPG) scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.DateOfBirth, &p.Phone, &p.Address, &p.District, &p.SubDistrict,
		&p.Latitude, &p.Longitude, &p.LastMenstrualPeriod, &p.Gravida, &p.Para, &p.Abortus,
		&p.MedicalHistory, &p.RiskFactors, &p.Active, &p.Status, &p.Delivery, &p.History,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	if p.RiskFactors == nil {
		p.RiskFactors = []string{}
	}
	if p.History == nil {
		p.History = []DeliveryRecord{}
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (id, user_id, name, date_of_birth, phone, address, district, sub_district,
			latitude, longitude, last_menstrual_period, gravida, para, abortus,
			medical_history, risk_factors, active, status, delivery, history)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
		RETURNING created_at, updated_at`,
		p.ID, p.UserID, p.Name, p.DateOfBirth, p.Phone, p.Address, p.District, p.SubDistrict,
		p.Latitude, p.Longitude, p.LastMenstrualPeriod, p.Gravida, p.Para, p.Abortus,
		p.MedicalHistory, p.RiskFactors, p.Active, p.Status, p.Delivery, p.History,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

func (r *patientRepoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE user_id = $1`, userID))
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	if p.History == nil {
		p.History = []DeliveryRecord{}
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET user_id=$2, name=$3, date_of_birth=$4, phone=$5, address=$6, district=$7,
			sub_district=$8, latitude=$9, longitude=$10, last_menstrual_period=$11, gravida=$12,
			para=$13, abortus=$14, medical_history=$15, risk_factors=$16, active=$17, status=$18,
			delivery=$19, history=$20, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.UserID, p.Name, p.DateOfBirth, p.Phone, p.Address, p.District,
		p.SubDistrict, p.Latitude, p.Longitude, p.LastMenstrualPeriod, p.Gravida,
		p.Para, p.Abortus, p.MedicalHistory, p.RiskFactors, p.Active, p.Status,
		p.Delivery, p.History)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *patientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// searchWhere matches q anywhere in the name, phone, address or
// sub-district. An empty q matches every patient.
func searchWhere(q string) (string, []interface{}) {
	q = strings.TrimSpace(q)
	if q == "" {
		return "", nil
	}
	return ` WHERE name ILIKE $1 OR phone ILIKE $1 OR address ILIKE $1 OR sub_district ILIKE $1`,
		[]interface{}{"%" + likeEscaper.Replace(q) + "%"}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *patientRepoPG) List(ctx context.Context, search string, limit, offset int) ([]*Patient, int, error) {
	where, args := searchWhere(search)
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM patient%s ORDER BY name, id LIMIT $%d OFFSET $%d`, patientCols, where, n+1, n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	items, err := r.collect(rows)
	return items, total, err
}

func (r *patientRepoPG) ListAll(ctx context.Context) ([]*Patient, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientCols+` FROM patient ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *patientRepoPG) collect(rows pgx.Rows) ([]*Patient, error) {
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := r.scanPatient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// =========== Visit Repository ===========

type visitRepoPG struct{ pool *pgxpool.Pool }

func NewVisitRepoPG(pool *pgxpool.Pool) VisitRepository {
	return &visitRepoPG{pool: pool}
}

func (r *visitRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const visitCols = `id, patient_id, visit_date, scheduled_date, next_visit_date, weight,
	blood_pressure, fundal_height, fetal_heart_rate, hemoglobin, complaints,
	danger_signs, edema, fetal_movement, follow_up, note, provider_id, status,
	created_at, updated_at`

func (r *visitRepoPG) scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit
	err := row.Scan(&v.ID, &v.PatientID, &v.VisitDate, &v.ScheduledDate, &v.NextVisitDate, &v.Weight,
		&v.BloodPressure, &v.FundalHeight, &v.FetalHeartRate, &v.Hemoglobin, &v.Complaints,
		&v.DangerSigns, &v.Edema, &v.FetalMovement, &v.FollowUp, &v.Note, &v.ProviderID, &v.Status,
		&v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

func (r *visitRepoPG) Create(ctx context.Context, v *Visit) error {
	v.ID = uuid.New()
	if v.DangerSigns == nil {
		v.DangerSigns = []string{}
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO anc_visit (id, patient_id, visit_date, scheduled_date, next_visit_date, weight,
			blood_pressure, fundal_height, fetal_heart_rate, hemoglobin, complaints,
			danger_signs, edema, fetal_movement, follow_up, note, provider_id, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		RETURNING created_at, updated_at`,
		v.ID, v.PatientID, v.VisitDate, v.ScheduledDate, v.NextVisitDate, v.Weight,
		v.BloodPressure, v.FundalHeight, v.FetalHeartRate, v.Hemoglobin, v.Complaints,
		v.DangerSigns, v.Edema, v.FetalMovement, v.FollowUp, v.Note, v.ProviderID, v.Status,
	).Scan(&v.CreatedAt, &v.UpdatedAt)
}

func (r *visitRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Visit, error) {
	return r.scanVisit(r.conn(ctx).QueryRow(ctx, `SELECT `+visitCols+` FROM anc_visit WHERE id = $1`, id))
}

func (r *visitRepoPG) Update(ctx context.Context, v *Visit) error {
	if v.DangerSigns == nil {
		v.DangerSigns = []string{}
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE anc_visit SET visit_date=$2, scheduled_date=$3, next_visit_date=$4, weight=$5,
			blood_pressure=$6, fundal_height=$7, fetal_heart_rate=$8, hemoglobin=$9, complaints=$10,
			danger_signs=$11, edema=$12, fetal_movement=$13, follow_up=$14, note=$15,
			provider_id=$16, status=$17, updated_at=NOW()
		WHERE id = $1`,
		v.ID, v.VisitDate, v.ScheduledDate, v.NextVisitDate, v.Weight,
		v.BloodPressure, v.FundalHeight, v.FetalHeartRate, v.Hemoglobin, v.Complaints,
		v.DangerSigns, v.Edema, v.FetalMovement, v.FollowUp, v.Note,
		v.ProviderID, v.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *visitRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM anc_visit WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *visitRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Visit, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+visitCols+` FROM anc_visit WHERE patient_id = $1 ORDER BY visit_date DESC, created_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *visitRepoPG) ListAll(ctx context.Context) ([]*Visit, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+visitCols+` FROM anc_visit ORDER BY visit_date DESC, created_at DESC`)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *visitRepoPG) collect(rows pgx.Rows) ([]*Visit, error) {
	defer rows.Close()
	var items []*Visit
	for rows.Next() {
		v, err := r.scanVisit(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

// =========== Alert Repository ===========

type alertRepoPG struct{ pool *pgxpool.Pool }

func NewAlertRepoPG(pool *pgxpool.Pool) AlertRepository {
	return &alertRepoPG{pool: pool}
}

func (r *alertRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const alertCols = `id, type, patient_id, patient_name, message, read, created_at`

func (r *alertRepoPG) Create(ctx context.Context, a *Alert) error {
	a.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO alert (id, type, patient_id, patient_name, message, read)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`,
		a.ID, a.Type, a.PatientID, a.PatientName, a.Message, a.Read,
	).Scan(&a.CreatedAt)
}

func (r *alertRepoPG) List(ctx context.Context, unreadOnly bool, limit, offset int) ([]*Alert, int, error) {
	where := ""
	if unreadOnly {
		where = ` WHERE NOT read`
	}
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM alert`+where).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+alertCols+` FROM alert`+where+` ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Alert
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.ID, &a.Type, &a.PatientID, &a.PatientName, &a.Message, &a.Read, &a.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &a)
	}
	return items, total, rows.Err()
}

func (r *alertRepoPG) MarkRead(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE alert SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *alertRepoPG) Prune(ctx context.Context, keep int) error {
	_, err := r.conn(ctx).Exec(ctx, `
		DELETE FROM alert WHERE id IN (
			SELECT id FROM alert ORDER BY created_at DESC OFFSET $1
		)`, keep)
	if err != nil {
		return fmt.Errorf("prune alerts: %w", err)
	}
	return nil
}

// =========== Checklist Repository ===========

type checklistRepoPG struct{ pool *pgxpool.Pool }

func NewChecklistRepoPG(pool *pgxpool.Pool) ChecklistRepository {
	return &checklistRepoPG{pool: pool}
}

func (r *checklistRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *checklistRepoPG) Get(ctx context.Context, patientID uuid.UUID, day time.Time) (map[string]bool, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT task, done FROM daily_checklist WHERE patient_id = $1 AND day = $2`, patientID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	done := make(map[string]bool)
	for rows.Next() {
		var task string
		var ok bool
		if err := rows.Scan(&task, &ok); err != nil {
			return nil, err
		}
		done[task] = ok
	}
	return done, rows.Err()
}

func (r *checklistRepoPG) Set(ctx context.Context, patientID uuid.UUID, day time.Time, task string, done bool) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO daily_checklist (patient_id, day, task, done)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (patient_id, day, task) DO UPDATE SET done = EXCLUDED.done, updated_at = NOW()`,
		patientID, day, task, done)
	return err
}
