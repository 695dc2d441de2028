package rollout

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type mapSource map[string]string

func (s mapSource) Get(_ context.Context, name string) (string, bool, error) {
	v, ok := s[name]
	return v, ok, nil
}

func evalWith(values map[string]string) *Evaluator {
	return &Evaluator{Sources: []Source{mapSource(values)}, Logger: zerolog.Nop()}
}

func TestDecideUnsetAndExplicitValues(t *testing.T) {
	cases := []struct {
		value   string
		enabled bool
		reason  string
	}{
		{"false", false, ReasonDisabled},
		{"0", false, ReasonDisabled},
		{"OFF", false, ReasonDisabled},
		{"true", true, ReasonEnabledAll},
		{"1", true, ReasonEnabledAll},
		{"On", true, ReasonEnabledAll},
	}
	for _, tc := range cases {
		d := evalWith(map[string]string{"CATEGORY_TOTALS": tc.value}).
			Decide(context.Background(), "CATEGORY_TOTALS", Context{UserID: "user-1"})
		if d.Enabled != tc.enabled || d.Reason != tc.reason {
			t.Fatalf("value %q: got enabled=%v reason=%s", tc.value, d.Enabled, d.Reason)
		}
	}

	unset := evalWith(nil).Decide(context.Background(), "CATEGORY_TOTALS", Context{UserID: "user-1"})
	if unset.Enabled || unset.Reason != ReasonUnset {
		t.Fatalf("unset flag must be disabled, got %+v", unset)
	}
}

func TestDecidePercentageDeterministic(t *testing.T) {
	e := evalWith(map[string]string{"CATEGORY_TOTALS": "50"})
	first := e.Decide(context.Background(), "CATEGORY_TOTALS", Context{UserID: "user-42"})
	for i := 0; i < 100; i++ {
		again := e.Decide(context.Background(), "CATEGORY_TOTALS", Context{UserID: "user-42"})
		if again.Enabled != first.Enabled {
			t.Fatal("repeated evaluations for the same user must not flicker")
		}
	}
	if first.Reason != ReasonPercentage {
		t.Fatalf("expected percentage reason, got %s", first.Reason)
	}
}

func TestDecidePercentageDistribution(t *testing.T) {
	e := evalWith(map[string]string{"CATEGORY_TOTALS": "10"})
	enabled := 0
	for i := 0; i < 1000; i++ {
		if e.Enabled(context.Background(), "CATEGORY_TOTALS", Context{UserID: fmt.Sprintf("user-%d", i)}) {
			enabled++
		}
	}
	if enabled < 50 || enabled > 150 {
		t.Fatalf("flag=10 across 1000 users: expected roughly 100 enabled, got %d", enabled)
	}
}

func TestDecidePercentageRequiresUser(t *testing.T) {
	d := evalWith(map[string]string{"CATEGORY_TOTALS": "100"}).
		Decide(context.Background(), "CATEGORY_TOTALS", Context{})
	if d.Enabled || d.Reason != ReasonNoUser {
		t.Fatalf("percentage flags must fail safe without a user, got %+v", d)
	}
}

func TestDecideAllowList(t *testing.T) {
	e := evalWith(map[string]string{"CATEGORY_TOTALS": "user-123, User-456"})

	if !e.Enabled(context.Background(), "CATEGORY_TOTALS", Context{UserID: "user-456"}) {
		t.Fatal("allow-list match must be case-insensitive and trimmed")
	}
	if e.Enabled(context.Background(), "CATEGORY_TOTALS", Context{UserID: "user-999"}) {
		t.Fatal("identifiers outside the list must stay disabled")
	}
	if e.Enabled(context.Background(), "CATEGORY_TOTALS", Context{}) {
		t.Fatal("allow-list flags must fail safe without a user")
	}
}

func TestDecideInvalidValue(t *testing.T) {
	d := evalWith(map[string]string{"CATEGORY_TOTALS": " , ,"}).
		Decide(context.Background(), "CATEGORY_TOTALS", Context{UserID: "user-1"})
	if d.Enabled || d.Reason != ReasonInvalid {
		t.Fatalf("unparseable value must disable with a diagnostic, got %+v", d)
	}
}

func TestBucketRange(t *testing.T) {
	for i := 0; i < 500; i++ {
		b := Bucket(fmt.Sprintf("user-%d", i))
		if b < 1 || b > 100 {
			t.Fatalf("bucket out of range: %d", b)
		}
	}
}

func TestRedisSourceOverridesEnv(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, mr.Set("flags:CATEGORY_TOTALS", "true"))

	e := &Evaluator{
		Sources: []Source{
			RedisSource{Client: client, Prefix: "flags:"},
			mapSource{"CATEGORY_TOTALS": "false"},
		},
		Logger: zerolog.Nop(),
	}
	d := e.Decide(context.Background(), "CATEGORY_TOTALS", Context{UserID: "user-1"})
	require.True(t, d.Enabled)
	require.Equal(t, ReasonEnabledAll, d.Reason)

	// Without the override the env value wins.
	mr.Del("flags:CATEGORY_TOTALS")
	d = e.Decide(context.Background(), "CATEGORY_TOTALS", Context{UserID: "user-1"})
	require.False(t, d.Enabled)
	require.Equal(t, ReasonDisabled, d.Reason)
}
