package environ

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"k8s.io/utils/ptr"
)

type envTest[K comparable] struct {
	name     string
	fallback K
	set      *string
	expected K
}

func testEnvGet[K comparable](t *testing.T, tests []envTest[K], fn func(string, K) K) {
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if test.set != nil {
				t.Setenv(test.name, *test.set)
			}
			assert.Equal(t, test.expected, fn(test.name, test.fallback))
		})
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "TASKPILOT_ACTION_FIFO", Key("action-fifo"))
	assert.Equal(t, "TASKPILOT_TOP", Key("top"))
}

func TestGetBool(t *testing.T) {
	tests := []envTest[bool]{
		{name: "TP_BOOL_UNSET", fallback: true, expected: true},
		{name: "TP_BOOL_FALSE", fallback: true, set: ptr.To("false"), expected: false},
		{name: "TP_BOOL_ONE", fallback: false, set: ptr.To("1"), expected: true},
		{name: "TP_BOOL_GARBAGE", fallback: true, set: ptr.To("maybe"), expected: true},
	}
	testEnvGet(t, tests, GetBool)
}

func TestGetDuration(t *testing.T) {
	tests := []envTest[time.Duration]{
		{name: "TP_DURATION_UNSET", fallback: time.Minute, expected: time.Minute},
		{name: "TP_DURATION_DAY", fallback: time.Minute, set: ptr.To("1d"), expected: 24 * time.Hour},
		{name: "TP_DURATION_MS", fallback: time.Minute, set: ptr.To("250ms"), expected: 250 * time.Millisecond},
		{name: "TP_DURATION_BAD", fallback: time.Second, set: ptr.To("soon"), expected: time.Second},
	}
	testEnvGet(t, tests, GetDuration)
}

func TestGetInt(t *testing.T) {
	tests := []envTest[int]{
		{name: "TP_INT_UNSET", fallback: 10, expected: 10},
		{name: "TP_INT_SET", fallback: 0, set: ptr.To("30"), expected: 30},
		{name: "TP_INT_NEGATIVE", fallback: 0, set: ptr.To("-1"), expected: -1},
		{name: "TP_INT_BAD", fallback: 5, set: ptr.To("five"), expected: 5},
	}
	testEnvGet(t, tests, GetInt)
}

func TestGetFloat64(t *testing.T) {
	tests := []envTest[float64]{
		{name: "TP_FLOAT_UNSET", fallback: 0.1, expected: 0.1},
		{name: "TP_FLOAT_SET", fallback: 0.1, set: ptr.To("0.25"), expected: 0.25},
		{name: "TP_FLOAT_BAD", fallback: 0.1, set: ptr.To("a lot"), expected: 0.1},
	}
	testEnvGet(t, tests, GetFloat64)
}

func TestGetString(t *testing.T) {
	tests := []envTest[string]{
		{name: "TP_STRING_UNSET", fallback: "auto", expected: "auto"},
		{name: "TP_STRING_SET", fallback: "auto", set: ptr.To("json"), expected: "json"},
	}
	testEnvGet(t, tests, GetString)
}

func TestGetStringSlice(t *testing.T) {
	assert.Equal(t, []string{"a"}, GetStringSlice("TP_SLICE_UNSET", []string{"a"}))

	t.Setenv("TP_SLICE_SET", "base.yaml, override.toml,,")
	assert.Equal(t, []string{"base.yaml", "override.toml"}, GetStringSlice("TP_SLICE_SET", nil))
}
