// internal/analysis/sink.go
package analysis

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"predcheck/internal/common/errors"
	"predcheck/internal/common/logger"
	"predcheck/internal/models"

	"github.com/google/uuid"
)

// PostgresSink persists finished analyses. Reads rebuild risk levels
// and the summary from the stored scores with the same pure classifier;
// scoring itself is never re-run.
type PostgresSink struct {
	db                *sql.DB
	highRiskThreshold int
	log               logger.Logger
}

// NewPostgresSink creates a sink over an open connection pool.
func NewPostgresSink(db *sql.DB, highRiskThreshold int, log logger.Logger) *PostgresSink {
	if highRiskThreshold <= 0 {
		highRiskThreshold = DefaultHighRiskThreshold
	}
	return &PostgresSink{
		db:                db,
		highRiskThreshold: highRiskThreshold,
		log:               log,
	}
}

// SaveAnalysis implements Sink. The analysis row and its references are
// written in one transaction.
func (s *PostgresSink) SaveAnalysis(ctx context.Context, a *models.Analysis) (string, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", errors.NewPersistenceFailureError(err)
	}
	defer tx.Rollback()

	warnings, err := json.Marshal(a.Warnings)
	if err != nil {
		return "", errors.NewPersistenceFailureError(err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO analyses (id, input_doi, input_title, warnings, total_references, high_risk_count, retracted_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.InputDOI, a.InputTitle, warnings,
		a.Summary.Total, a.Summary.HighRiskCount, a.Summary.RetractedCount, a.CreatedAt,
	); err != nil {
		return "", errors.NewPersistenceFailureError(err)
	}

	for i, ref := range a.References {
		if err := s.insertReference(ctx, tx, a.ID, i, ref); err != nil {
			return "", errors.NewPersistenceFailureError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", errors.NewPersistenceFailureError(err)
	}
	s.log.Info("analysis persisted", map[string]interface{}{
		"analysisId": a.ID,
		"references": len(a.References),
	})
	return a.ID, nil
}

func (s *PostgresSink) insertReference(ctx context.Context, tx *sql.Tx, analysisID string, position int, ref models.ScoredReference) error {
	scoring := ref.Scoring
	if scoring == nil {
		scoring = models.NewScoringResult()
	}
	breakdown, err := json.Marshal(scoring.Breakdown)
	if err != nil {
		return err
	}
	sources, err := json.Marshal(scoring.EvidenceSources)
	if err != nil {
		return err
	}
	details, err := json.Marshal(scoring.Details)
	if err != nil {
		return err
	}
	retraction, err := json.Marshal(ref.Retraction)
	if err != nil {
		return err
	}
	authors, err := json.Marshal(ref.Reference.Authors)
	if err != nil {
		return err
	}
	issn := ""
	if len(ref.Reference.ISSN) > 0 {
		issn = ref.Reference.ISSN[0]
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO analysis_references
			(analysis_id, position, doi, title, journal, publisher, issn, year, authors,
			 predatory_score, score_breakdown, evidence_sources, match_confidence, details,
			 is_retracted, retraction, unscored)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		analysisID, position, ref.Reference.DOI, ref.Reference.Title,
		ref.Reference.Journal, ref.Reference.Publisher, issn, ref.Reference.Year, authors,
		scoring.Score, breakdown, sources, scoring.MatchConfidence, details,
		ref.Retraction.IsRetracted, retraction, ref.Unscored,
	)
	return err
}

// GetAnalysis implements Sink.
func (s *PostgresSink) GetAnalysis(ctx context.Context, id string) (*models.Analysis, error) {
	a := &models.Analysis{ID: id}
	var warnings []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT input_doi, input_title, warnings, created_at
		FROM analyses WHERE id = $1`, id).
		Scan(&a.InputDOI, &a.InputTitle, &warnings, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("analysis %s not found", id)
	}
	if err != nil {
		return nil, errors.NewPersistenceFailureError(err)
	}
	if len(warnings) > 0 {
		if err := json.Unmarshal(warnings, &a.Warnings); err != nil {
			a.Warnings = nil
		}
	}

	refs, err := s.loadReferences(ctx, id)
	if err != nil {
		return nil, err
	}
	a.References = refs
	a.Summary = models.BuildSummary(refs, s.highRiskThreshold)
	return a, nil
}

func (s *PostgresSink) loadReferences(ctx context.Context, analysisID string) ([]models.ScoredReference, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doi, title, journal, publisher, issn, year, authors,
		       predatory_score, score_breakdown, evidence_sources, match_confidence, details,
		       is_retracted, retraction, unscored
		FROM analysis_references
		WHERE analysis_id = $1
		ORDER BY position`, analysisID)
	if err != nil {
		return nil, errors.NewPersistenceFailureError(err)
	}
	defer rows.Close()

	var refs []models.ScoredReference
	for rows.Next() {
		var (
			sr          models.ScoredReference
			issn        string
			authors     []byte
			breakdown   []byte
			sources     []byte
			details     []byte
			retraction  []byte
			isRetracted bool
		)
		result := models.NewScoringResult()
		err := rows.Scan(
			&sr.Reference.DOI, &sr.Reference.Title, &sr.Reference.Journal,
			&sr.Reference.Publisher, &issn, &sr.Reference.Year, &authors,
			&result.Score, &breakdown, &sources, &result.MatchConfidence, &details,
			&isRetracted, &retraction, &sr.Unscored,
		)
		if err != nil {
			return nil, errors.NewPersistenceFailureError(err)
		}
		if issn != "" {
			sr.Reference.ISSN = []string{issn}
		}
		if err := json.Unmarshal(authors, &sr.Reference.Authors); err != nil {
			sr.Reference.Authors = nil
		}
		if err := json.Unmarshal(breakdown, &result.Breakdown); err != nil {
			result.Breakdown = models.NewScoringResult().Breakdown
		}
		if err := json.Unmarshal(sources, &result.EvidenceSources); err != nil {
			result.EvidenceSources = []string{}
		}
		if err := json.Unmarshal(details, &result.Details); err != nil {
			result.Details = []string{}
		}
		if err := json.Unmarshal(retraction, &sr.Retraction); err != nil {
			sr.Retraction = models.RetractionStatus{}
		}
		sr.Scoring = result

		// Risk is recomputed, never stored.
		if isRetracted {
			sr.Risk = models.RetractedRiskLevel()
		} else {
			sr.Risk = models.ClassifyRisk(result.Score)
		}
		refs = append(refs, sr)
	}
	return refs, rows.Err()
}
