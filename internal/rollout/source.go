package rollout

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"
)

// EnvSource reads flags from process environment variables named
// <Prefix><NAME>, e.g. ENABLE_CATEGORY_TOTALS.
type EnvSource struct {
	Prefix string
}

// Get implements Source.
func (s EnvSource) Get(_ context.Context, name string) (string, bool, error) {
	value, ok := os.LookupEnv(s.key(name))
	if !ok || strings.TrimSpace(value) == "" {
		return "", false, nil
	}
	return value, true, nil
}

// All returns every configured flag keyed by bare flag name. Read-only
// operator view; not used on the evaluation path.
func (s EnvSource) All() map[string]string {
	prefix := s.prefix()
	flags := map[string]string{}
	for _, entry := range os.Environ() {
		key, value, found := strings.Cut(entry, "=")
		if !found || !strings.HasPrefix(key, prefix) {
			continue
		}
		flags[strings.TrimPrefix(key, prefix)] = value
	}
	return flags
}

func (s EnvSource) key(name string) string {
	return s.prefix() + strings.ToUpper(strings.TrimSpace(name))
}

func (s EnvSource) prefix() string {
	if strings.TrimSpace(s.Prefix) == "" {
		return "ENABLE_"
	}
	return s.Prefix
}

// RedisSource reads operator overrides from redis keys <Prefix><name>.
// Overrides take precedence over the environment when both sources are
// wired, letting operators adjust a rollout without a redeploy.
type RedisSource struct {
	Client *redis.Client
	Prefix string
}

// Get implements Source.
func (s RedisSource) Get(ctx context.Context, name string) (string, bool, error) {
	if s.Client == nil {
		return "", false, errors.New("rollout: redis client not configured")
	}
	value, err := s.Client.Get(ctx, s.key(name)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if strings.TrimSpace(value) == "" {
		return "", false, nil
	}
	return value, true, nil
}

func (s RedisSource) key(name string) string {
	prefix := s.Prefix
	if strings.TrimSpace(prefix) == "" {
		prefix = "flags:"
	}
	return prefix + strings.ToUpper(strings.TrimSpace(name))
}
