// Package workspace resolves credentials for workspace slots. The sync engine
// itself never reads the environment; it consumes the resolved
// {APIKey, BaseURL} pair this package produces.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/voicelayer/retellsync/internal/core"
)

// Credentials is the resolved credential pair for one workspace slot.
type Credentials struct {
	APIKey  string `envconfig:"API_KEY" required:"true"`
	BaseURL string `envconfig:"BASE_URL"`
}

// envPrefix derives the environment prefix for a slot:
// staging -> RETELL_STAGING, production -> RETELL_PRODUCTION,
// production-2 -> RETELL_PRODUCTION_2.
func envPrefix(slot core.WorkspaceSlot) string {
	return "RETELL_" + strings.ToUpper(strings.ReplaceAll(slot.Key(), "-", "_"))
}

// loadDotenv loads the project's .env file into the process environment
// without overriding variables that are already set. A missing file is fine.
func loadDotenv(projectDir string) error {
	path := filepath.Join(projectDir, ".env")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("checking %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Resolve returns the credentials for a slot, from the process environment
// with the project .env file as fallback.
func Resolve(projectDir string, slot core.WorkspaceSlot) (*Credentials, error) {
	if err := loadDotenv(projectDir); err != nil {
		return nil, err
	}
	prefix := envPrefix(slot)
	var creds Credentials
	if err := envconfig.Process(prefix, &creds); err != nil {
		return nil, fmt.Errorf("credentials for %s: %w (set %s_API_KEY in the environment or .env)", slot, err, prefix)
	}
	return &creds, nil
}

// Configured reports whether credentials for a slot are available.
func Configured(projectDir string, slot core.WorkspaceSlot) bool {
	creds, err := Resolve(projectDir, slot)
	return err == nil && creds.APIKey != ""
}

// indexedProductionKey matches RETELL_PRODUCTION_<n>_API_KEY variables.
var indexedProductionKey = regexp.MustCompile(`^RETELL_PRODUCTION_([0-9]+)_API_KEY=`)

// ConfiguredSlots lists every slot with credentials available: staging, the
// default production slot, and any indexed production slots found in the
// environment.
func ConfiguredSlots(projectDir string) ([]core.WorkspaceSlot, error) {
	if err := loadDotenv(projectDir); err != nil {
		return nil, err
	}

	var slots []core.WorkspaceSlot
	if os.Getenv("RETELL_STAGING_API_KEY") != "" {
		slots = append(slots, core.Staging())
	}
	if os.Getenv("RETELL_PRODUCTION_API_KEY") != "" {
		slots = append(slots, core.Production())
	}

	var indexes []int
	for _, entry := range os.Environ() {
		if m := indexedProductionKey.FindStringSubmatch(entry); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n >= 2 {
				indexes = append(indexes, n)
			}
		}
	}
	sort.Ints(indexes)
	for _, n := range indexes {
		slot, err := core.ProductionN(n)
		if err != nil {
			continue
		}
		slots = append(slots, slot)
	}
	return slots, nil
}
