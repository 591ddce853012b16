package ocr

import (
	"context"

	"portfolio-backend/internal/shared/telemetry"
)

// Fallback tries Primary first and Secondary when Primary fails.
type Fallback struct {
	Primary   Adapter
	Secondary Adapter
}

func (f Fallback) ExtractText(ctx context.Context, base64PDF string) (string, error) {
	text, err := f.Primary.ExtractText(ctx, base64PDF)
	if err == nil || f.Secondary == nil || ctx.Err() != nil {
		return text, err
	}
	telemetry.Warn("ocr.fallback", map[string]any{"error": err.Error()})
	if alt, altErr := f.Secondary.ExtractText(ctx, base64PDF); altErr == nil {
		return alt, nil
	}
	return "", err
}
