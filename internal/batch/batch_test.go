package batch

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"testing/iotest"

	"github.com/ulikunitz/xz"

	cerrors "github.com/FocuswithJustin/computor/core/errors"
	"github.com/FocuswithJustin/computor/core/format"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func writeXZ(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	w, err := xz.NewWriter(f)
	if err != nil {
		t.Fatalf("xz.NewWriter: %v", err)
	}
	if _, err := w.Write([]byte(content)); err != nil {
		t.Fatalf("xz write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("xz close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("file close: %v", err)
	}
	return path
}

func texts(eqs []Equation) []string {
	out := make([]string, len(eqs))
	for i, e := range eqs {
		out[i] = e.Text
	}
	return out
}

const textFile = `# sample equations
X = 1

  2*X^2 - 2 = 0
# trailing comment
X^2 + 1 = 0
`

func TestLoadText(t *testing.T) {
	eqs, err := Load(writeFile(t, "eq.txt", textFile), LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	want := []Equation{{2, "X = 1"}, {4, "2*X^2 - 2 = 0"}, {6, "X^2 + 1 = 0"}}
	if len(eqs) != len(want) {
		t.Fatalf("got %v, want %v", eqs, want)
	}
	for i := range want {
		if eqs[i] != want[i] {
			t.Errorf("equation %d = %+v, want %+v", i, eqs[i], want[i])
		}
	}
}

func TestLoadXZ(t *testing.T) {
	eqs, err := Load(writeXZ(t, "eq.xz", textFile), LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(eqs) != 3 || eqs[1].Text != "2*X^2 - 2 = 0" {
		t.Errorf("got %v", texts(eqs))
	}

	eqs, err = Load(writeXZ(t, "eq.yaml.xz", "equations:\n  - X = 3\n"), LoadOptions{})
	if err != nil {
		t.Fatalf("Load(yaml.xz) error: %v", err)
	}
	if len(eqs) != 1 || eqs[0].Text != "X = 3" {
		t.Errorf("got %v", texts(eqs))
	}
}

const xmlFile = `<?xml version="1.0"?>
<set>
  <equation>X = 1</equation>
  <group name="quadratics">
    <equation> 2*X^2 - 2 = 0 </equation>
    <equation></equation>
    <eq>X^2 + 1 = 0</eq>
  </group>
</set>`

func TestLoadXML(t *testing.T) {
	path := writeFile(t, "eq.xml", xmlFile)

	eqs, err := Load(path, LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got := strings.Join(texts(eqs), "|"); got != "X = 1|2*X^2 - 2 = 0" {
		t.Errorf("default xpath got %q", got)
	}

	eqs, err = Load(path, LoadOptions{XPath: "//group[@name='quadratics']/eq"})
	if err != nil {
		t.Fatalf("Load(custom xpath) error: %v", err)
	}
	if len(eqs) != 1 || eqs[0].Text != "X^2 + 1 = 0" {
		t.Errorf("custom xpath got %v", texts(eqs))
	}

	_, err = Load(path, LoadOptions{XPath: "//equation["})
	if !errors.Is(err, cerrors.ErrInvalidInput) {
		t.Errorf("bad xpath error = %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "eq.yml", "name: demo\nequations:\n  - X = 1\n  - \"X^2 = 4\"\n  - ''\n")
	eqs, err := Load(path, LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	want := []Equation{{3, "X = 1"}, {4, "X^2 = 4"}}
	if len(eqs) != 2 || eqs[0] != want[0] || eqs[1] != want[1] {
		t.Errorf("got %+v, want %+v", eqs, want)
	}

	_, err = Load(writeFile(t, "bad.yaml", "equations:\n  - [X, 1]\n"), LoadOptions{})
	if !errors.Is(err, cerrors.ErrInvalidInput) {
		t.Errorf("non-string equation error = %v", err)
	}

	eqs, err = Load(writeFile(t, "empty.yaml", ""), LoadOptions{})
	if err != nil || len(eqs) != 0 {
		t.Errorf("empty yaml = %v, %v", eqs, err)
	}
}

func TestReadYAMLStreams(t *testing.T) {
	const doc = "equations:\n  - X = 1\n  - X^2 = 4\n"
	eqs, err := Read(iotest.OneByteReader(strings.NewReader(doc)), FormatYAML, LoadOptions{})
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if len(eqs) != 2 || eqs[1].Text != "X^2 = 4" {
		t.Errorf("got %+v", eqs)
	}

	failing := io.MultiReader(strings.NewReader("equations:\n  - X = 1\n"), iotest.ErrReader(errors.New("disk gone")))
	if _, err := Read(failing, FormatYAML, LoadOptions{}); err == nil {
		t.Error("read failure should surface as an error")
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.txt"), LoadOptions{}); err == nil {
		t.Error("missing file should fail")
	} else {
		var ioErr *cerrors.IOError
		if !errors.As(err, &ioErr) {
			t.Errorf("missing file error = %T", err)
		}
	}
	if _, err := Load(writeFile(t, "eq.csv", "X = 1"), LoadOptions{}); !errors.Is(err, cerrors.ErrInvalidInput) {
		t.Errorf("unsupported extension error = %v", err)
	}
	if _, err := Load(writeFile(t, "eq.xz", "not xz"), LoadOptions{}); err == nil {
		t.Error("corrupt xz should fail")
	}
	if _, err := Load(writeFile(t, "eq.txt", "X = 1\x00\x01\x02"), LoadOptions{}); !errors.Is(err, cerrors.ErrInvalidInput) {
		t.Errorf("binary text file error = %v", err)
	}
}

func TestDetectFormat(t *testing.T) {
	tests := map[string]Format{
		"eqs":     FormatText,
		"a/b.TXT": FormatText,
		"x.xml":   FormatXML,
		"x.yaml":  FormatYAML,
		"x.yml":   FormatYAML,
		"x.eq":    FormatText,
	}
	for name, want := range tests {
		got, err := DetectFormat(name)
		if err != nil || got != want {
			t.Errorf("DetectFormat(%q) = %s, %v; want %s", name, got, err, want)
		}
	}
}

func equations(texts ...string) []Equation {
	eqs := make([]Equation, len(texts))
	for i, s := range texts {
		eqs[i] = Equation{Line: i + 1, Text: s}
	}
	return eqs
}

func TestRunPreservesOrder(t *testing.T) {
	var inputs []string
	for i := 0; i < 50; i++ {
		inputs = append(inputs, "X = "+strings.Repeat("1", i%5+1))
	}
	outcomes, err := Run(context.Background(), equations(inputs...), 8)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	for i, o := range outcomes {
		if o.Equation.Text != inputs[i] {
			t.Fatalf("outcome %d is for %q, want %q", i, o.Equation.Text, inputs[i])
		}
		want := strings.Repeat("1", i%5+1)
		if got := format.Solution(o.Result.Solutions.Solutions[0], 6); got != want {
			t.Errorf("outcome %d = %s, want %s", i, got, want)
		}
	}
}

func TestRunKeepsTypedErrors(t *testing.T) {
	outcomes, err := Run(context.Background(), equations("X = 1", "X^ = 1", "X^3 = 1", "X + y = 1"), 2)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !outcomes[0].OK() {
		t.Errorf("first equation failed: %v", outcomes[0].Err)
	}
	for i, want := range []error{cerrors.ErrParse, cerrors.ErrUnsupportedDegree, cerrors.ErrLex} {
		if o := outcomes[i+1]; !errors.Is(o.Err, want) || o.Result != nil {
			t.Errorf("outcome %d = %v, want %v", i+1, o.Err, want)
		}
	}
	if n := Failed(outcomes); n != 3 {
		t.Errorf("Failed() = %d, want 3", n)
	}

	rep := outcomes[2].Report(format.Options{})
	if rep.ErrorCode != "UNSUPPORTED_DEGREE" || rep.Reduced != "1 * X^3 - 1 * X^0 = 0" {
		t.Errorf("report = %+v", rep)
	}
	if rep := outcomes[0].Report(format.Options{}); rep.Result == nil || rep.Error != "" {
		t.Errorf("success report = %+v", rep)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes, err := Run(ctx, equations("X = 1", "X = 2", "X = 3"), 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("got %d outcomes", len(outcomes))
	}
	for i, o := range outcomes {
		if o.Equation.Text == "" {
			t.Errorf("outcome %d lost its equation", i)
		}
		if !o.OK() && !errors.Is(o.Err, context.Canceled) {
			t.Errorf("outcome %d error = %v", i, o.Err)
		}
	}
}

func TestRunProgress(t *testing.T) {
	var calls atomic.Int64
	var last atomic.Int64
	_, err := RunWithProgress(context.Background(), equations("X = 1", "X = 2", "X = 3"), 3, func(done, total int) {
		calls.Add(1)
		if total != 3 {
			t.Errorf("total = %d", total)
		}
		if int64(done) > last.Load() {
			last.Store(int64(done))
		}
	})
	if err != nil {
		t.Fatalf("RunWithProgress() error: %v", err)
	}
	if calls.Load() != 3 || last.Load() != 3 {
		t.Errorf("progress calls=%d last=%d", calls.Load(), last.Load())
	}
}

func TestRunEmpty(t *testing.T) {
	outcomes, err := Run(context.Background(), nil, 4)
	if err != nil || len(outcomes) != 0 {
		t.Errorf("Run(nil) = %v, %v", outcomes, err)
	}
}
