package api

import (
	"fmt"
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// genericSuggestions is returned when the caller has no uploaded files yet,
// so agent.suggestions() still has something useful to show.
var genericSuggestions = []string{
	"Upload a spreadsheet to get started, then ask things like \"what was the total revenue last month?\"",
	"Try: \"rank the top 5 customers by order count\"",
	"Try: \"show me the trend of daily signups over the last 90 days\"",
}

// suggestionsHandler handles GET /api/v1/suggestions, deriving example
// questions from the caller's uploaded files, per spec.md §6's
// agent.suggestions() → [string] contract.
func (s *Server) suggestionsHandler(c *echo.Context) error {
	userID := extractUser(c)

	files, err := s.catalog.ListFiles(c.Request().Context(), userID)
	if err != nil {
		return mapError(err)
	}
	if len(files) == 0 {
		return c.JSON(http.StatusOK, genericSuggestions)
	}

	suggestions := make([]string, 0, len(files)*2)
	for _, f := range files {
		for _, table := range f.TableNames {
			suggestions = append(suggestions, fmt.Sprintf("Summarize %q in %q", table, f.Filename))
			suggestions = append(suggestions, fmt.Sprintf("What are the top 5 rows in %q by the largest numeric column?", table))
			if len(suggestions) >= 6 {
				return c.JSON(http.StatusOK, suggestions)
			}
		}
	}
	return c.JSON(http.StatusOK, suggestions)
}
