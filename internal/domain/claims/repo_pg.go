package claims

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openhis/claimsbridge/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// notFound translates the driver's no-rows sentinel into the domain's.
func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}

// =========== Claim Repository ===========

type claimRepoPG struct{ pool *pgxpool.Pool }

func NewClaimRepoPG(pool *pgxpool.Pool) ClaimRepository { return &claimRepoPG{pool: pool} }

func (r *claimRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const claimCols = `id, code, status, review_status, insuree_id, admin_id, feedback_id,
	visit_type, claimed, approved, valuated, date_claimed, date_from, date_to,
	icd_code, icd1_code, icd2_code, icd3_code, icd4_code, created_at, updated_at`

func (r *claimRepoPG) scanClaim(row pgx.Row) (*Claim, error) {
	var c Claim
	err := row.Scan(&c.ID, &c.Code, &c.Status, &c.ReviewStatus, &c.InsureeID, &c.AdminID, &c.FeedbackID,
		&c.VisitType, &c.Claimed, &c.Approved, &c.Valuated, &c.DateClaimed, &c.DateFrom, &c.DateTo,
		&c.ICDCode, &c.ICD1Code, &c.ICD2Code, &c.ICD3Code, &c.ICD4Code, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func (r *claimRepoPG) Create(ctx context.Context, c *Claim) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO claim (id, code, status, review_status, insuree_id, admin_id, feedback_id,
			visit_type, claimed, approved, valuated, date_claimed, date_from, date_to,
			icd_code, icd1_code, icd2_code, icd3_code, icd4_code)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		c.ID, c.Code, c.Status, c.ReviewStatus, c.InsureeID, c.AdminID, c.FeedbackID,
		c.VisitType, c.Claimed, c.Approved, c.Valuated, c.DateClaimed, c.DateFrom, c.DateTo,
		c.ICDCode, c.ICD1Code, c.ICD2Code, c.ICD3Code, c.ICD4Code)
	return err
}

func (r *claimRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Claim, error) {
	c, err := r.scanClaim(r.conn(ctx).QueryRow(ctx, `SELECT `+claimCols+` FROM claim WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "claim "+id.String())
	}
	return c, nil
}

func (r *claimRepoPG) GetByCode(ctx context.Context, code string) (*Claim, error) {
	c, err := r.scanClaim(r.conn(ctx).QueryRow(ctx, `SELECT `+claimCols+` FROM claim WHERE code = $1`, code))
	if err != nil {
		return nil, notFound(err, "claim code "+code)
	}
	return c, nil
}

func (r *claimRepoPG) List(ctx context.Context, status, limit, offset int) ([]*Claim, error) {
	query := `SELECT ` + claimCols + ` FROM claim`
	args := []interface{}{limit, offset}
	if status != 0 {
		query += ` WHERE status = $3`
		args = append(args, status)
	}
	query += ` ORDER BY date_claimed DESC, code LIMIT $1 OFFSET $2`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var claims []*Claim
	for rows.Next() {
		c, err := r.scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

func (r *claimRepoPG) Count(ctx context.Context, status int) (int, error) {
	query := `SELECT COUNT(*) FROM claim`
	var args []interface{}
	if status != 0 {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	var total int
	err := r.conn(ctx).QueryRow(ctx, query, args...).Scan(&total)
	return total, err
}

func (r *claimRepoPG) Update(ctx context.Context, c *Claim) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE claim SET status=$2, review_status=$3, insuree_id=$4, admin_id=$5, feedback_id=$6,
			visit_type=$7, claimed=$8, approved=$9, valuated=$10, date_claimed=$11,
			date_from=$12, date_to=$13,
			icd_code=$14, icd1_code=$15, icd2_code=$16, icd3_code=$17, icd4_code=$18,
			updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.Status, c.ReviewStatus, c.InsureeID, c.AdminID, c.FeedbackID,
		c.VisitType, c.Claimed, c.Approved, c.Valuated, c.DateClaimed,
		c.DateFrom, c.DateTo,
		c.ICDCode, c.ICD1Code, c.ICD2Code, c.ICD3Code, c.ICD4Code)
	return err
}

const itemCols = `id, claim_id, kind, target_id, code, sequence, status,
	qty_provided, qty_approved, price_asked, price_approved, price_adjusted,
	price_valuated, rejection_reason, price_origin`

func (r *claimRepoPG) scanItem(row pgx.Row) (*LineItem, error) {
	var li LineItem
	err := row.Scan(&li.ID, &li.ClaimID, &li.Kind, &li.TargetID, &li.Code, &li.Sequence, &li.Status,
		&li.QtyProvided, &li.QtyApproved, &li.PriceAsked, &li.PriceApproved, &li.PriceAdjusted,
		&li.PriceValuated, &li.RejectionReason, &li.PriceOrigin)
	return &li, err
}

func (r *claimRepoPG) AddItem(ctx context.Context, li *LineItem) error {
	if li.ID == uuid.Nil {
		li.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO claim_item (id, claim_id, kind, target_id, code, sequence, status,
			qty_provided, qty_approved, price_asked, price_approved, price_adjusted,
			price_valuated, rejection_reason, price_origin)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		li.ID, li.ClaimID, li.Kind, li.TargetID, li.Code, li.Sequence, li.Status,
		li.QtyProvided, li.QtyApproved, li.PriceAsked, li.PriceApproved, li.PriceAdjusted,
		li.PriceValuated, li.RejectionReason, li.PriceOrigin)
	return err
}

func (r *claimRepoPG) GetItems(ctx context.Context, claimID uuid.UUID) ([]*LineItem, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+itemCols+` FROM claim_item WHERE claim_id = $1 ORDER BY kind, sequence`, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*LineItem
	for rows.Next() {
		li, err := r.scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, li)
	}
	return items, rows.Err()
}

func (r *claimRepoPG) GetItemByTarget(ctx context.Context, claimID uuid.UUID, kind LineKind, targetID uuid.UUID) (*LineItem, error) {
	li, err := r.scanItem(r.conn(ctx).QueryRow(ctx, `
		SELECT `+itemCols+` FROM claim_item
		WHERE claim_id = $1 AND kind = $2 AND target_id = $3
		ORDER BY sequence LIMIT 1`, claimID, kind, targetID))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("%s line item %s", kind, targetID))
	}
	return li, nil
}

func (r *claimRepoPG) UpdateItem(ctx context.Context, li *LineItem) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE claim_item SET status=$2, qty_provided=$3, qty_approved=$4,
			price_asked=$5, price_approved=$6, price_adjusted=$7, price_valuated=$8,
			rejection_reason=$9
		WHERE id = $1`,
		li.ID, li.Status, li.QtyProvided, li.QtyApproved,
		li.PriceAsked, li.PriceApproved, li.PriceAdjusted, li.PriceValuated,
		li.RejectionReason)
	return err
}

// =========== Registry Repository ===========

type registryRepoPG struct{ pool *pgxpool.Pool }

func NewRegistryRepoPG(pool *pgxpool.Pool) RegistryRepository { return &registryRepoPG{pool: pool} }

func (r *registryRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *registryRepoPG) GetAdmin(ctx context.Context, id uuid.UUID) (*ClaimAdmin, error) {
	var a ClaimAdmin
	err := r.conn(ctx).QueryRow(ctx, `SELECT id, code, name FROM claim_admin WHERE id = $1`, id).
		Scan(&a.ID, &a.Code, &a.Name)
	if err != nil {
		return nil, notFound(err, "claim admin "+id.String())
	}
	return &a, nil
}

func (r *registryRepoPG) GetFeedback(ctx context.Context, id uuid.UUID) (*Feedback, error) {
	var f Feedback
	err := r.conn(ctx).QueryRow(ctx, `SELECT id, claim_id FROM feedback WHERE id = $1`, id).
		Scan(&f.ID, &f.ClaimID)
	if err != nil {
		return nil, notFound(err, "feedback "+id.String())
	}
	return &f, nil
}

func (r *registryRepoPG) GetDiagnosisByCode(ctx context.Context, code string) (*Diagnosis, error) {
	var d Diagnosis
	err := r.conn(ctx).QueryRow(ctx, `SELECT id, code, name FROM diagnosis WHERE code = $1`, code).
		Scan(&d.ID, &d.Code, &d.Name)
	if err != nil {
		return nil, notFound(err, "diagnosis "+code)
	}
	return &d, nil
}
