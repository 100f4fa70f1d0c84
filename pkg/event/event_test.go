package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors_SetKindAndFields(t *testing.T) {
	assert.Equal(t, Event{Kind: KindJobStarted, Job: "a"}, Started("a"))
	assert.Equal(t, Event{Kind: KindJobEnded, Job: "a", ReturnCode: 3}, Ended("a", 3))
	assert.Equal(t, Event{Kind: KindTestFailure, Job: "a"}, TestFailed("a"))
	assert.Equal(t, Event{Kind: KindOutput, Job: "a", Line: "hi"}, Output("a", "hi"))
}

func TestParseKind_UnknownName_MapsToKindUnknown(t *testing.T) {
	assert.Equal(t, KindJobEnded, ParseKind("job_ended"))
	assert.Equal(t, KindUnknown, ParseKind("job_progress"))
	assert.Equal(t, KindUnknown, ParseKind(""))
}

func TestKindString_OutOfRange(t *testing.T) {
	assert.Equal(t, "kind(42)", Kind(42).String())
}

func TestUnmarshalJSON_DecodesRecordedEvents(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Event
	}{
		{"started", `{"kind":"job_started","job":"pkg_a"}`, Started("pkg_a")},
		{"ended zero rc", `{"kind":"job_ended","job":"pkg_a","rc":0}`, Ended("pkg_a", 0)},
		{"ended interrupted", `{"kind":"job_ended","job":"pkg_a","rc":-2}`, Ended("pkg_a", ReturnCodeInterrupted)},
		{"test failure", `{"kind":"test_failure","job":"pkg_b"}`, TestFailed("pkg_b")},
		{"unknown kind", `{"kind":"job_queued","job":"pkg_c"}`, Event{Kind: KindUnknown, Job: "pkg_c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Event
			require.NoError(t, json.Unmarshal([]byte(tt.in), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMarshalJSON_OmitsReturnCodeExceptForEnded(t *testing.T) {
	b, err := json.Marshal(Started("x"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"job_started","job":"x"}`, string(b))

	b, err = json.Marshal(Ended("x", 0))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"job_ended","job":"x","rc":0}`, string(b))
}

func TestUnmarshalJSON_Malformed(t *testing.T) {
	var e Event
	assert.Error(t, json.Unmarshal([]byte(`{"kind":`), &e))
}
