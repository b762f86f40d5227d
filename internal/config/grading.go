package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

type GradingConfig struct {
	Provider    string
	Model       string
	MaxDuration time.Duration
	MaxRetries  int
	MaxFileMB   int
	MaxPages    int
	// AttachmentBaseURLs restricts server-side attachment downloads to these
	// prefixes. Empty means any public address.
	AttachmentBaseURLs []string
	AttachmentTimeout  time.Duration
}

var (
	gradingConfig *GradingConfig
	gradingOnce   sync.Once
)

func LoadGradingConfig() *GradingConfig {
	gradingOnce.Do(func() {
		gradingConfig = loadGradingConfig(os.Getenv)
	})
	return gradingConfig
}

func loadGradingConfig(getenv func(string) string) *GradingConfig {
	provider := strings.ToLower(strings.TrimSpace(getenv("GRADING_PROVIDER")))
	if provider == "" {
		provider = "anthropic"
	}
	return &GradingConfig{
		Provider:    provider,
		Model:       getenv("GRADING_MODEL"),
		MaxDuration: durationEnv(getenv, "GRADING_MAX_DURATION", 60*time.Second),
		MaxRetries:  intEnv(getenv, "GRADING_MAX_RETRIES", 0, 0),
		MaxFileMB:   intEnv(getenv, "GRADING_MAX_FILE_MB", 10, 1),
		MaxPages:    intEnv(getenv, "GRADING_MAX_PAGES", 0, 0),

		AttachmentBaseURLs: listEnv(getenv, "GRADING_ATTACHMENT_BASE_URLS"),
		AttachmentTimeout:  durationEnv(getenv, "GRADING_ATTACHMENT_TIMEOUT", 30*time.Second),
	}
}

// MaxFileBytes is the upload size limit in bytes.
func (c *GradingConfig) MaxFileBytes() int64 {
	return int64(c.MaxFileMB) * 1024 * 1024
}

func durationEnv(getenv func(string) string, key string, def time.Duration) time.Duration {
	v := getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("Warning: invalid %s=%q, defaulting to %s", key, v, def)
		return def
	}
	return d
}

// intEnv parses key as an int no lower than minimum.
func intEnv(getenv func(string) string, key string, def, minimum int) int {
	v := getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < minimum {
		log.Printf("Warning: invalid %s=%q, defaulting to %d", key, v, def)
		return def
	}
	return n
}

func listEnv(getenv func(string) string, key string) []string {
	var out []string
	for _, v := range strings.Split(getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
