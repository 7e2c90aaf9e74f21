package trigger

import (
	"encoding/json"
	"testing"

	"gotest.tools/v3/assert"
)

func TestPartialOverride(t *testing.T) {
	cases := []struct {
		name string
		base PartialBuildOptions
		over PartialBuildOptions
		want PartialBuildOptions
	}{
		{
			name: "unset fields keep the base",
			base: PartialBuildOptions{Branch: "main", CommitHash: "abc"},
			over: PartialBuildOptions{CommitMessage: "fix"},
			want: PartialBuildOptions{Branch: "main", CommitHash: "abc", CommitMessage: "fix"},
		},
		{
			name: "branch clears an inherited tag",
			base: PartialBuildOptions{Tag: "v1.0.0"},
			over: PartialBuildOptions{Branch: "main"},
			want: PartialBuildOptions{Branch: "main"},
		},
		{
			name: "tag clears an inherited branch",
			base: PartialBuildOptions{Branch: "main", CommitHash: "abc"},
			over: PartialBuildOptions{Tag: "v1.0.0"},
			want: PartialBuildOptions{Tag: "v1.0.0", CommitHash: "abc"},
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			assert.DeepEqual(t, test.base.Override(test.over), test.want)
		})
	}
}

func TestPartialBuildOptions_Exclusion(t *testing.T) {
	_, err := PartialBuildOptions{Branch: "main", Tag: "v1.0.0"}.BuildOptions()
	assert.ErrorContains(t, err, "mutually exclusive")
}

func TestBuildOptions_Wire(t *testing.T) {
	opts := &BuildOptions{
		Branch:        "main",
		CommitHash:    "abc",
		WorkflowID:    "primary",
		CommitPaths:   []PathSet{{Added: []string{"a.go"}}},
		Environments:  []Environment{{Name: "DEPLOY_ENV", Value: "staging"}},
		CommitMessage: "fix",
	}

	payload, err := json.Marshal(opts)
	assert.NilError(t, err)

	// Field names are the API contract; unset fields stay off the wire.
	assert.Equal(t, string(payload), `{"branch":"main","commit_hash":"abc","commit_message":"fix",`+
		`"commit_paths":[{"added":["a.go"],"removed":null,"modified":null}],`+
		`"workflow_id":"primary",`+
		`"environments":[{"name":"DEPLOY_ENV","value":"staging","is_expand":false}]}`)
}
