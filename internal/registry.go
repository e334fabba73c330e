package internal

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/tomashoffer/afripulse/internal/db"
)

const OptOutReasonUserRequest = "user_request"

// HashContact returns the pseudonymous respondent key for a contact
// identifier such as a phone number.
func HashContact(contact string) string {
	sum := sha256.Sum256([]byte(contact))
	return hex.EncodeToString(sum[:])
}

type RespondentRegistry struct {
	repo           db.RespondentRepository
	defaultCountry string
	defaultLang    string
	log            *slog.Logger
}

func NewRespondentRegistry(repo db.RespondentRepository, defaultCountry, defaultLang string) *RespondentRegistry {
	return &RespondentRegistry{
		repo:           repo,
		defaultCountry: defaultCountry,
		defaultLang:    defaultLang,
		log:            slog.Default(),
	}
}

// Upsert registers a first-time respondent with the default country and
// language, or bumps last activity for a known one.
func (r *RespondentRegistry) Upsert(ctx context.Context, phoneHash string) (db.Respondent, error) {
	respondent, err := r.repo.UpsertRespondent(ctx, phoneHash, r.defaultCountry, r.defaultLang)
	if err != nil {
		return db.Respondent{}, fmt.Errorf("upsert respondent: %w", err)
	}
	r.log.Debug("Respondent active", "respondent_id", respondent.Id)
	return respondent, nil
}

func (r *RespondentRegistry) RecordOptOut(ctx context.Context, phoneHash string) error {
	if err := r.repo.InsertOptOut(ctx, phoneHash, OptOutReasonUserRequest); err != nil {
		return fmt.Errorf("record opt-out: %w", err)
	}
	r.log.Info("Opt-out recorded")
	return nil
}
