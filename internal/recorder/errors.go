package recorder

import (
	"fmt"

	"github.com/ffstudios/pantrybot/internal/domain"
)

func errValidation(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, domain.ErrValidationFailed)...)
}

func errRecording(op string, cause error) error {
	return fmt.Errorf("%s: %w: %v", op, domain.ErrRecordingFailed, cause)
}
