package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateMerchantReference returns a collision-resistant order reference.
// The timestamp keeps references sortable and human-readable; the UUID
// suffix guarantees uniqueness under concurrent submissions.
func GenerateMerchantReference() string {
	now := time.Now().UTC()
	suffix := strings.Split(uuid.New().String(), "-")[0]

	return fmt.Sprintf("SMARTWIN-%d-%s", now.UnixMilli(), suffix)
}
