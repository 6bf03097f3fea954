// Package credential generates and frames the single-use tokens visitors
// present at check-in. Rendering (QR image, PDF) is a collaborator concern;
// this package only fixes the token format and the issued payload.
package credential

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// Prefix identifies tokens minted by this system.
const Prefix = "VMS-"

// New mints a fresh credential: the prefix plus eight uppercase hex chars
// drawn from a v4 UUID. Uniqueness is enforced at the store index; collisions
// at this entropy surface as a conflict on insert and the caller retries.
func New() string {
	u := uuid.New()
	return Prefix + strings.ToUpper(hex.EncodeToString(u[:4]))
}
