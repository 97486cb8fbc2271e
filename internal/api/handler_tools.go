package api

import (
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/tabletalk/internal/agent"
	"github.com/codeready-toolchain/tabletalk/internal/tools"
)

// toolsProbeHandler handles GET /api/v1/tools, per spec.md §6's
// tools.probe() → [{name, signature, example}] diagnostics contract. The
// tool list is static (agent.ToolDefinition carries no per-tenant state),
// so an unconfigured Executor is enough to list it.
func (s *Server) toolsProbeHandler(c *echo.Context) error {
	var probe tools.Executor
	defs, err := probe.ListTools(c.Request().Context())
	if err != nil {
		return mapError(err)
	}

	entries := make([]ToolProbeEntry, 0, len(defs))
	for _, d := range defs {
		entries = append(entries, ToolProbeEntry{
			Name:      d.Name,
			Signature: d.Name + "(" + d.ArgsHelp + ")",
			Example:   exampleFor(d),
		})
	}
	return c.JSON(http.StatusOK, entries)
}

// exampleFor builds a plausible example call from a tool's positional
// argument help string, substituting placeholder values for each
// argument name so the probe response is directly copyable.
func exampleFor(d agent.ToolDefinition) string {
	if d.ArgsHelp == "(none)" {
		return d.Name
	}
	parts := strings.Split(d.ArgsHelp, "|")
	values := make([]string, len(parts))
	for i, p := range parts {
		values[i] = placeholderFor(p)
	}
	return d.Name + "(" + strings.Join(values, "|") + ")"
}

func placeholderFor(argName string) string {
	argName = strings.TrimSuffix(argName, "?")
	switch argName {
	case "file_id":
		return "f-123"
	case "table":
		return "orders"
	case "n":
		return "5"
	case "limit":
		return "100"
	default:
		return argName
	}
}
