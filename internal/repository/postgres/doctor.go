package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/scheduling-api/internal/model"
)

type doctorRepository struct {
	BaseRepository
}

func (r *doctorRepository) Get(ctx context.Context, id uuid.UUID) (_ *model.Doctor, err error) {
	defer r.observe("doctors.get", time.Now(), &err)

	query := `SELECT id, name, email, clinic_id, active FROM doctors WHERE id = $1`

	var doctor model.Doctor
	if err = sqlx.GetContext(ctx, r.q, &doctor, query, id); err != nil {
		err = noRows(err)
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}
	return &doctor, nil
}
