// Package controller implements the ReAct iteration loop (C5), adapted
// nearly 1:1 from pkg/agent/controller/react.go and
// pkg/agent/controller/react_parser.go.
package controller

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/codeready-toolchain/tabletalk/internal/agent"
)

// ParsedReActResponse is the result of parsing an LLM response in ReAct
// format.
type ParsedReActResponse struct {
	Thought string

	HasAction   bool
	Action      string
	ActionInput string

	IsFinalAnswer bool
	FinalAnswer   string

	IsUnknownTool bool
	IsMalformed   bool
	ErrorMessage  string

	FoundSections map[string]bool
}

var (
	midlineActionPattern      = regexp.MustCompile(`[.!?][\x60\s*]*Action:`)
	midlineFinalAnswerPattern = regexp.MustCompile(`[.!?][\x60\s*]*Final Answer:`)
	midlineActionInputPattern = regexp.MustCompile(`[.!?][\x60\s*]*Action Input:`)
	// toolNamePattern accepts the tabletalk tool surface's flat names
	// (list_user_files, agg_helper, ...), unlike the teacher's
	// ^server\.tool$ MCP pattern — there is exactly one tool namespace
	// here, so the dot-qualified server prefix has nothing to name.
	toolNamePattern = regexp.MustCompile(`^[\w\-]+$`)

	recoverActionColonPattern = regexp.MustCompile(`(?i)\bAction:`)
	recoverActionWordPattern  = regexp.MustCompile(`(?i)\bAction(?:\s|$)`)
	recoverActionInputPattern = regexp.MustCompile(`(?i)Action Input:`)
)

// ParseReActResponse parses LLM text output into a structured ReAct
// response. Deliberately forgiving: it tries several recovery strategies
// before declaring a response malformed, so one awkward turn doesn't end
// the conversation.
func ParseReActResponse(text string) *ParsedReActResponse {
	if text == "" {
		return &ParsedReActResponse{
			IsMalformed: true,
			FoundSections: map[string]bool{
				"thought": false, "action": false, "action_input": false, "final_answer": false,
			},
		}
	}

	sections := extractSections(text)
	foundSections := map[string]bool{
		"thought":      sections["thought"] != nil,
		"action":       sections["action"] != nil,
		"action_input": sections["action_input"] != nil,
		"final_answer": sections["final_answer"] != nil,
	}

	action := deref(sections["action"])
	actionInput := sections["action_input"]

	if action != "" && actionInput != nil {
		action = strings.TrimSpace(action)
		if action == "" {
			return &ParsedReActResponse{IsMalformed: true, Thought: deref(sections["thought"]), FoundSections: foundSections}
		}
		if !toolNamePattern.MatchString(action) {
			return &ParsedReActResponse{
				IsUnknownTool: true,
				HasAction:     true,
				Thought:       deref(sections["thought"]),
				Action:        action,
				ActionInput:   deref(actionInput),
				ErrorMessage:  fmt.Sprintf("Unknown tool '%s'. Check the list of available tools provided in the prompt.", action),
				FoundSections: foundSections,
			}
		}
		return &ParsedReActResponse{
			HasAction: true, Thought: deref(sections["thought"]), Action: action,
			ActionInput: deref(actionInput), FoundSections: foundSections,
		}
	}

	if sections["final_answer"] != nil && deref(sections["final_answer"]) != "" {
		return &ParsedReActResponse{
			IsFinalAnswer: true, Thought: deref(sections["thought"]),
			FinalAnswer: deref(sections["final_answer"]), FoundSections: foundSections,
		}
	}

	return &ParsedReActResponse{IsMalformed: true, Thought: deref(sections["thought"]), FoundSections: foundSections}
}

func extractSections(text string) map[string]*string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	parsed := map[string]*string{"thought": nil, "action": nil, "action_input": nil, "final_answer": nil}

	var currentSection string
	var contentLines []string
	foundSections := map[string]bool{}

	for _, rawLine := range lines {
		line := strings.TrimSpace(rawLine)
		if line == "" && currentSection == "" {
			continue
		}
		if shouldStopParsing(line) {
			finalizeSection(parsed, currentSection, contentLines)
			break
		}

		switch {
		case isSectionHeader(line, "final_answer", foundSections):
			if currentSection == "thought" && hasMidlineFinalAnswer(line) {
				if loc := midlineFinalAnswerPattern.FindStringIndex(line); loc != nil {
					if before := strings.TrimSpace(line[:loc[0]+1]); before != "" {
						contentLines = append(contentLines, before)
					}
				}
			}
			finalizeSection(parsed, currentSection, contentLines)
			currentSection = "final_answer"
			foundSections["final_answer"] = true
			contentLines = []string{extractSectionContent(line, "Final Answer:")}

		case isSectionHeader(line, "thought", foundSections):
			finalizeSection(parsed, currentSection, contentLines)
			currentSection = "thought"
			foundSections["thought"] = true
			if strings.HasPrefix(line, "Thought:") {
				thoughtContent := extractSectionContent(line, "Thought:")
				switch {
				case hasMidlineFinalAnswer(thoughtContent):
					if loc := midlineFinalAnswerPattern.FindStringIndex(thoughtContent); loc != nil {
						before := strings.TrimSpace(thoughtContent[:loc[0]+1])
						setSection(parsed, "thought", before)
						remaining := strings.TrimSpace(thoughtContent[loc[0]+1:])
						if idx := strings.Index(remaining, "Final Answer:"); idx != -1 {
							setSection(parsed, "final_answer", strings.TrimSpace(remaining[idx+len("Final Answer:"):]))
							foundSections["final_answer"] = true
						}
						currentSection = "final_answer"
						contentLines = []string{deref(parsed["final_answer"])}
					} else {
						contentLines = []string{thoughtContent}
					}
				case hasMidlineAction(thoughtContent):
					if loc := midlineActionPattern.FindStringIndex(thoughtContent); loc != nil {
						before := strings.TrimSpace(thoughtContent[:loc[0]+1])
						setSection(parsed, "thought", before)
						remaining := strings.TrimSpace(thoughtContent[loc[0]+1:])
						if idx := strings.Index(remaining, "Action:"); idx != -1 {
							setSection(parsed, "action", strings.TrimSpace(remaining[idx+len("Action:"):]))
							foundSections["action"] = true
						}
						currentSection = ""
						contentLines = nil
					} else {
						contentLines = []string{thoughtContent}
					}
				default:
					contentLines = []string{thoughtContent}
				}
			} else {
				contentLines = []string{}
			}

		case isSectionHeader(line, "action", foundSections):
			finalizeSection(parsed, currentSection, contentLines)
			currentSection = "action"
			foundSections["action"] = true
			delete(foundSections, "action_input")
			contentLines = []string{extractSectionContent(line, "Action:")}

		case isSectionHeader(line, "action_input", foundSections):
			finalizeSection(parsed, currentSection, contentLines)
			currentSection = "action_input"
			foundSections["action_input"] = true
			contentLines = []string{extractSectionContent(line, "Action Input:")}

		default:
			if currentSection == "" {
				continue
			}
			if currentSection == "thought" && hasMidlineFinalAnswer(line) {
				if loc := midlineFinalAnswerPattern.FindStringIndex(line); loc != nil {
					if before := strings.TrimSpace(line[:loc[0]+1]); before != "" {
						contentLines = append(contentLines, before)
					}
					finalizeSection(parsed, currentSection, contentLines)
					remaining := strings.TrimSpace(line[loc[0]+1:])
					if idx := strings.Index(remaining, "Final Answer:"); idx != -1 {
						setSection(parsed, "final_answer", strings.TrimSpace(remaining[idx+len("Final Answer:"):]))
						foundSections["final_answer"] = true
						currentSection = "final_answer"
						contentLines = []string{deref(parsed["final_answer"])}
					}
				} else {
					contentLines = append(contentLines, line)
				}
			} else {
				contentLines = append(contentLines, line)
			}
		}
	}

	finalizeSection(parsed, currentSection, contentLines)

	if parsed["action_input"] != nil && parsed["action"] == nil {
		if recovered := recoverMissingAction(text); recovered != "" {
			setSection(parsed, "action", recovered)
		}
	}
	return parsed
}

func isSectionHeader(line string, sectionType string, foundSections map[string]bool) bool {
	if line == "" {
		return false
	}
	if sectionType == "final_answer" && foundSections["final_answer"] {
		return false
	}

	switch sectionType {
	case "thought":
		if strings.HasPrefix(line, "Thought:") || line == "Thought" {
			return true
		}
	case "action":
		if strings.HasPrefix(line, "Action:") {
			return true
		}
	case "action_input":
		if strings.HasPrefix(line, "Action Input:") {
			return true
		}
	case "final_answer":
		if strings.HasPrefix(line, "Final Answer:") {
			return true
		}
	}

	if sectionType == "final_answer" {
		if strings.HasPrefix(line, "Thought:") || line == "Thought" || strings.HasPrefix(line, "Thought ") ||
			strings.HasPrefix(line, "Action:") || strings.HasPrefix(line, "Action Input:") {
			return false
		}
		return strings.Contains(line, "Final Answer:") && midlineFinalAnswerPattern.MatchString(line)
	}

	if sectionType == "action" && strings.Contains(line, "Action:") {
		return midlineActionPattern.MatchString(line)
	}
	if sectionType == "action_input" && strings.Contains(line, "Action Input:") {
		return foundSections["action"] && midlineActionInputPattern.MatchString(line)
	}
	return false
}

func shouldStopParsing(line string) bool {
	if line == "" {
		return false
	}
	if strings.HasPrefix(line, "[Based on") {
		return true
	}
	if strings.HasPrefix(line, "Observation:") {
		if strings.Contains(line, "Please specify") || strings.Contains(line, "what Action you want to take") {
			return false
		}
		if strings.Contains(line, "Error in reasoning") {
			return false
		}
		return true
	}
	return false
}

func hasMidlineAction(text string) bool {
	return text != "" && strings.Contains(text, "Action:") && midlineActionPattern.MatchString(text)
}

func hasMidlineFinalAnswer(text string) bool {
	return text != "" && strings.Contains(text, "Final Answer:") && midlineFinalAnswerPattern.MatchString(text)
}

func extractSectionContent(line, prefix string) string {
	idx := strings.Index(line, prefix)
	if idx == -1 {
		return ""
	}
	return strings.TrimSpace(line[idx+len(prefix):])
}

func finalizeSection(parsed map[string]*string, section string, contentLines []string) {
	if section == "" || contentLines == nil {
		return
	}
	content := strings.TrimSpace(strings.Join(contentLines, "\n"))
	if content != "" || parsed[section] == nil {
		parsed[section] = &content
	}
}

func setSection(parsed map[string]*string, section, value string) {
	parsed[section] = &value
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// recoverMissingAction backtracks from "Action Input:" to find an
// unlabeled or malformed "Action:" line that precedes it.
func recoverMissingAction(response string) string {
	loc := recoverActionInputPattern.FindStringIndex(response)
	if loc == nil {
		return ""
	}
	textBefore := response[:loc[0]]

	if matches := recoverActionColonPattern.FindAllStringIndex(textBefore, -1); len(matches) > 0 {
		last := matches[len(matches)-1]
		if validated := validateToolName(strings.TrimSpace(textBefore[last[1]:])); validated != "" {
			return validated
		}
	}
	if matches := recoverActionWordPattern.FindAllStringIndex(textBefore, -1); len(matches) > 0 {
		last := matches[len(matches)-1]
		if validated := validateToolName(strings.TrimSpace(textBefore[last[1]:])); validated != "" {
			return validated
		}
	}
	return ""
}

func validateToolName(text string) string {
	if text == "" {
		return ""
	}
	firstLine := strings.TrimSpace(strings.SplitN(text, "\n", 2)[0])
	if toolNamePattern.MatchString(firstLine) {
		return firstLine
	}
	return ""
}

// GetFormatErrorFeedback returns a specific diagnostic appended as an
// observation so the LLM can self-correct its response format.
func GetFormatErrorFeedback(parsed *ParsedReActResponse) string {
	found := parsed.FoundSections
	hasThought, hasAction, hasActionInput, hasFinalAnswer := found["thought"], found["action"], found["action_input"], found["final_answer"]

	var specificError string
	switch {
	case hasAction && !hasActionInput:
		specificError = "FORMAT ERROR: Your response has \"Action:\" but is missing \"Action Input:\".\n" +
			"Every \"Action:\" MUST be followed by \"Action Input:\" (even if empty for no-parameter tools)."
	case hasActionInput && !hasAction:
		specificError = "FORMAT ERROR: Your response has \"Action Input:\" but is missing \"Action:\".\n" +
			"\"Action Input:\" must be preceded by \"Action:\" specifying which tool to call."
	case hasThought && !hasAction && !hasFinalAnswer:
		specificError = "FORMAT ERROR: Your response only contains \"Thought:\".\n" +
			"After reasoning, you MUST either call a tool (\"Action:\" + \"Action Input:\") or conclude with \"Final Answer:\"."
	case !hasThought && !hasAction && !hasFinalAnswer:
		specificError = "FORMAT ERROR: Could not detect any ReAct sections in your response.\n" +
			"Your response must use the exact format: \"Thought:\", \"Action:\", \"Action Input:\", or \"Final Answer:\""
	default:
		keys := []string{"thought", "action", "action_input", "final_answer"}
		var foundList, missingList []string
		for _, k := range keys {
			if found[k] {
				foundList = append(foundList, k)
			} else {
				missingList = append(missingList, k)
			}
		}
		specificError = fmt.Sprintf("FORMAT ERROR: Incomplete ReAct format.\nFound: %s\nMissing: %s",
			strings.Join(foundList, ", "), strings.Join(missingList, ", "))
	}
	return specificError + "\n" + GetFormatCorrectionReminder()
}

// GetFormatCorrectionReminder returns the general format reminder appended
// to every format-error observation.
func GetFormatCorrectionReminder() string {
	return `IMPORTANT: Please follow the exact ReAct format:

1. Use colons: "Thought:", "Action:", "Action Input:", "Final Answer:"
2. Start each section on a NEW LINE (never continue on same line as previous text)
3. Stop after Action Input - the system provides Observations
4. Your response MUST include EITHER tool calling (Action + Action Input) OR Final Answer

Required structure to call a tool:
Thought: [your reasoning]
Action: [tool name]
Action Input: [pipe-delimited arguments]

Required structure to conclude:
Thought: [final reasoning]
Final Answer: [complete answer]`
}

// FormatObservation formats a tool execution result as a ReAct observation.
func FormatObservation(result *agent.ToolResult) string {
	if result == nil {
		return "Observation: Error - no tool result available"
	}
	if result.IsError {
		return fmt.Sprintf("Observation: Error executing %s: %s", result.Name, result.Content)
	}
	return fmt.Sprintf("Observation: %s", result.Content)
}

// FormatUnknownToolError formats an error when the LLM requests an unknown
// tool, including the tool list so the LLM can self-correct.
func FormatUnknownToolError(toolName string, errorMsg string, availableTools []agent.ToolDefinition) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Observation: Error - %s", errorMsg))
	if len(availableTools) > 0 {
		sb.WriteString("\n\nAvailable tools:\n")
		for _, tool := range availableTools {
			sb.WriteString(fmt.Sprintf("  - %s: %s\n", tool.Name, tool.Description))
		}
	} else {
		sb.WriteString("\n\nNo tools are currently available.")
	}
	return sb.String()
}

// FormatErrorObservation formats an LLM call error as an observation.
func FormatErrorObservation(err error) string {
	if err == nil {
		return "Observation: Error from previous attempt: unknown error. Please try again."
	}
	return fmt.Sprintf("Observation: Error from previous attempt: %s. Please try again.", err.Error())
}

// ExtractForcedConclusionAnswer extracts the answer text from a forced
// conclusion response, falling back to raw thought text if the model
// didn't use ReAct format under pressure.
func ExtractForcedConclusionAnswer(parsed *ParsedReActResponse) string {
	if parsed.IsFinalAnswer && parsed.FinalAnswer != "" {
		return parsed.FinalAnswer
	}
	return parsed.Thought
}
