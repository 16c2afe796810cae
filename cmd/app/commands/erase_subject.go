package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	anonymizeDomain "github.com/allisson/pii-vault/internal/anonymize/domain"
	"github.com/allisson/pii-vault/internal/app"
	"github.com/allisson/pii-vault/internal/config"
)

// noLoginVerifier satisfies the gate's verifier dependency for commands that
// only revoke. Any attempt through it fails as an unknown account.
type noLoginVerifier struct{}

func (noLoginVerifier) Verify(ctx context.Context, accountID, secret string) (uuid.UUID, bool, error) {
	return uuid.Nil, false, nil
}

// RunEraseSubject scrubs every protected record belonging to a data subject,
// deletes their lockout counters, and revokes their session tokens. The
// operation is idempotent and can be re-run after partial failures.
func RunEraseSubject(ctx context.Context, subjectIDStr, format string) error {
	subjectID, err := uuid.Parse(subjectIDStr)
	if err != nil {
		return fmt.Errorf("invalid subject-id: %w", err)
	}

	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()
	logger.Info("starting subject erasure", slog.String("subject_id", subjectIDStr))

	defer closeContainer(container, logger)

	// Erasure only revokes tokens; no attempts are served from this command.
	container.SetCredentialVerifier(noLoginVerifier{})

	erasureUseCase, err := container.ErasureUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize erasure use case: %w", err)
	}

	report, err := erasureUseCase.Erase(ctx, subjectID)
	if err != nil {
		return fmt.Errorf("failed to erase subject: %w", err)
	}

	if format == "json" {
		outputEraseJSON(report)
	} else {
		outputEraseText(report)
	}

	if !report.Complete() {
		return fmt.Errorf("erasure finished with %d failure(s); re-run to retry", len(report.Failures))
	}

	return nil
}

// outputEraseText outputs the erasure report in human-readable text format.
func outputEraseText(report *anonymizeDomain.ErasureReport) {
	fmt.Printf("Subject:          %s\n", report.SubjectID)
	fmt.Printf("Records scrubbed: %d\n", report.RecordsScrubbed)
	fmt.Printf("Already scrubbed: %d\n", report.AlreadyScrubbed)
	fmt.Printf("Counters deleted: %d\n", report.CountersDeleted)
	fmt.Printf("Tokens deleted:   %d\n", report.TokensDeleted)
	if len(report.Failures) > 0 {
		fmt.Printf("Failures:         %d\n", len(report.Failures))
		for _, failure := range report.Failures {
			fmt.Printf("  - record %s: %s\n", failure.RecordID, failure.Reason)
		}
	}
}

// outputEraseJSON outputs the erasure report in JSON format for machine consumption.
func outputEraseJSON(report *anonymizeDomain.ErasureReport) {
	failures := make([]map[string]interface{}, 0, len(report.Failures))
	for _, failure := range report.Failures {
		failures = append(failures, map[string]interface{}{
			"record_id": failure.RecordID,
			"reason":    failure.Reason,
		})
	}

	result := map[string]interface{}{
		"subject_id":       report.SubjectID,
		"records_scrubbed": report.RecordsScrubbed,
		"already_scrubbed": report.AlreadyScrubbed,
		"counters_deleted": report.CountersDeleted,
		"tokens_deleted":   report.TokensDeleted,
		"failures":         failures,
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal JSON: %v\n", err)
		return
	}

	fmt.Println(string(jsonBytes))
}
