package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/docmodel/pkg/command"
)

type fakeCommand struct {
	volatile bool
}

func (c *fakeCommand) Execute() error           { return nil }
func (c *fakeCommand) Undo() error              { return nil }
func (c *fakeCommand) Redo() error              { return nil }
func (c *fakeCommand) IsVolatile() bool         { return c.volatile }
func (c *fakeCommand) IsNoOp() bool             { return false }
func (c *fakeCommand) TypeName() string         { return "FakeCommand" }
func (c *fakeCommand) ToObject() map[string]any { return map[string]any{"type": "FakeCommand"} }

func TestRecorder_CountsOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewRecorder(reg)
	require.NoError(t, err)

	stack := command.NewStack()
	stack.AddObserver(r.Observer("doc-1", stack))

	require.NoError(t, stack.Execute(&fakeCommand{}))
	require.NoError(t, stack.Execute(&fakeCommand{}))
	require.NoError(t, stack.Execute(&fakeCommand{volatile: true}))
	_, err = stack.Undo()
	require.NoError(t, err)

	assert.Equal(t, 3.0, testutil.ToFloat64(r.commands.WithLabelValues("execute", "FakeCommand")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.commands.WithLabelValues("undo", "FakeCommand")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.depth.WithLabelValues("doc-1", "undo")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.depth.WithLabelValues("doc-1", "redo")))
}

func TestRecorder_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewRecorder(reg)
	require.NoError(t, err)
	_, err = NewRecorder(reg)
	assert.Error(t, err)
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewRecorder(reg)
	require.NoError(t, err)
	r.Observer("doc-1", nil).Applied(command.OpExecute, &fakeCommand{})

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `docmodel_commands_total{op="execute",type="FakeCommand"} 1`), body)
}
