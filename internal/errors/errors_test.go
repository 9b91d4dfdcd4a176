package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "data error",
			code:    "E100",
			wantMsg: "Provider data not found",
			wantCat: CategoryData,
		},
		{
			name:    "export error",
			code:    "E110",
			wantMsg: "Shell document not found",
			wantCat: CategoryExport,
		},
		{
			name:    "publish error",
			code:    "E140",
			wantMsg: "Publish failed",
			wantCat: CategoryPublish,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestError_Error(t *testing.T) {
	err := New("E110")
	if got, want := err.Error(), "E110: Shell document not found"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	wrapped := New("E100").Wrap(os.ErrNotExist)
	if !strings.HasSuffix(wrapped.Error(), os.ErrNotExist.Error()) {
		t.Errorf("Error() = %q, want cause suffix", wrapped.Error())
	}

	bare := &Error{Message: "test error"}
	if bare.Error() != "test error" {
		t.Errorf("Error() = %q, want %q", bare.Error(), "test error")
	}
}

func TestError_UnwrapAndIs(t *testing.T) {
	err := fmt.Errorf("loading: %w", New("E100").Wrap(os.ErrNotExist))

	if !stderrors.Is(err, os.ErrNotExist) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if !stderrors.Is(err, New("E100")) {
		t.Error("errors.Is should match on code")
	}
	if stderrors.Is(err, New("E101")) {
		t.Error("errors.Is should not match a different code")
	}
	if !HasCode(err, "E100") {
		t.Error("HasCode should find E100 through fmt wrapping")
	}
	if HasCode(nil, "E100") {
		t.Error("HasCode(nil) should be false")
	}
}

func TestWithLocation_ReadsContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.json")
	content := "[\n  {\n    \"id\": 1,,\n    \"name\": \"x\"\n  }\n]\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	err := New("E101").WithLocation(path, 3, 12)
	if err.Location.String() != path+":3:12" {
		t.Errorf("Location = %q", err.Location.String())
	}
	if len(err.Context) == 0 {
		t.Fatal("expected context lines")
	}

	DisableColors()
	defer EnableColors()

	out := err.Format()
	for _, want := range []string{"ERROR E101: Provider data is malformed", "→    3", "\"id\": 1,,"} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}
}

func TestFormat_SuggestionAndCause(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("E110").
		WithSuggestion("Run the client build").
		Wrap(os.ErrNotExist)

	out := err.Format()
	if !strings.Contains(out, "Hint: Run the client build") {
		t.Errorf("Format() missing hint:\n%s", out)
	}
	if !strings.Contains(out, "Cause: "+os.ErrNotExist.Error()) {
		t.Errorf("Format() missing cause:\n%s", out)
	}
	if err.FormatCompact() != "E110: Shell document not found" {
		t.Errorf("FormatCompact() = %q", err.FormatCompact())
	}
}

func TestFprint(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	Fprint(&buf, fmt.Errorf("export: %w", New("E132")))
	if !strings.Contains(buf.String(), "ERROR E132") {
		t.Errorf("Fprint coded = %q", buf.String())
	}

	buf.Reset()
	Fprint(&buf, stderrors.New("plain"))
	if !strings.Contains(buf.String(), "ERROR: plain") {
		t.Errorf("Fprint plain = %q", buf.String())
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText(strings.Repeat("word ", 30), 20)
	for _, l := range lines {
		if len(l) > 20 {
			t.Errorf("line %q longer than 20", l)
		}
	}
	if wrapText("", 10) != nil {
		t.Error("wrapText(\"\") should be nil")
	}
}

func TestRegistryCodesHaveCategories(t *testing.T) {
	for code, tmpl := range registry {
		if tmpl.Category == "" || tmpl.Message == "" {
			t.Errorf("%s: incomplete template %+v", code, tmpl)
		}
		if err := New(code); err.Message != tmpl.Message {
			t.Errorf("New(%s).Message = %q, want %q", code, err.Message, tmpl.Message)
		}
	}
}
