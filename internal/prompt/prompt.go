// Package prompt builds the conversation messages sent to the language model.
package prompt

import (
	"fmt"
	"strconv"
)

const systemPrompt = `You are an expert code quality engineer specializing in fixing static-analysis issues.

Your task is to analyze code issues and propose precise, minimal fixes that:
1. Address the specific rule violation
2. Maintain code functionality and style
3. Make ONLY the minimal changes necessary - do not reformat, reorder, or modify unrelated code
4. Follow language best practices

Always provide clear explanations for your fixes.`

// System returns the system prompt shared by all conversations.
func System() string {
	return systemPrompt
}

// AnalyzeData carries everything the analysis prompt interpolates.
type AnalyzeData struct {
	IssueKey   string
	Rule       string
	Severity   string
	Type       string
	FilePath   string
	Line       int
	Message    string
	RuleDetail string

	NodeKind   string
	NodeText   string
	ParentKind string

	CrossReferences string
}

// Analyze renders the "explain and propose" prompt for an issue.
func Analyze(d AnalyzeData) string {
	msg := d.Message
	if d.RuleDetail != "" {
		msg += "\n\n**Rule Details**:\n" + d.RuleDetail
	}
	nodeKind, nodeText, parentKind := d.NodeKind, d.NodeText, d.ParentKind
	if nodeKind == "" {
		nodeKind = "N/A"
	}
	if nodeText == "" {
		nodeText = "N/A"
	}
	if parentKind == "" {
		parentKind = "N/A"
	}
	out := fmt.Sprintf(`Analyze this code quality issue:

**Issue Key**: %s
**Rule**: %s
**Severity**: %s
**Type**: %s
**File**: %s
**Line**: %s
**Message**: %s

**AST Context**:
- Node type: %s
- Node text: %s
- Parent type: %s`,
		d.IssueKey, d.Rule, d.Severity, d.Type, d.FilePath, lineLabel(d.Line), msg,
		nodeKind, nodeText, parentKind)
	if d.CrossReferences != "" {
		out += "\n\n**Usages elsewhere in the repository**:\n" + d.CrossReferences
	}
	out += `

Please analyze this issue and explain:
1. What the issue is
2. Why it's a problem
3. How to fix it

Then propose a fix.`
	return out
}

// FixData carries the fields for the targeted fix prompt.
type FixData struct {
	Message     string
	FilePath    string
	Line        int
	FileContent string
}

// TargetedFix renders the prompt asking the model for search-and-replace
// edits in the JSON envelope the edit parser understands.
func TargetedFix(d FixData) string {
	return fmt.Sprintf(`Based on the previous analysis, generate a targeted fix for this issue.

**Issue**: %s
**File**: %s
**Line**: %s

**File content**:
`+"```"+`
%s
`+"```"+`

Return your fix as a JSON object with the following structure:
{
  "edits": [
    {
      "file": "path/to/file",
      "old_code": "the exact lines to replace (copied from the original)",
      "new_code": "the replacement lines"
    }
  ]
}

CRITICAL RULES:
1. Copy the old_code EXACTLY from the file content above - including all whitespace and indentation
2. Include enough context (surrounding lines) to make the match unique
3. Only change what's necessary to fix the issue - do not reformat or modify unrelated code
4. Each old_code must appear exactly once in its file

Return ONLY the JSON object, no explanations.`,
		d.Message, d.FilePath, lineLabel(d.Line), d.FileContent)
}

// EditFeedback renders the retry message after a reply could not be
// parsed or its edits could not be applied.
func EditFeedback(cause string) string {
	return fmt.Sprintf(`Your previous fix attempt failed: %s

Please try again with a valid JSON response containing "old_code" and "new_code" fields.
Make sure to copy the old_code EXACTLY from the file, including all whitespace.`, cause)
}

// ValidationFeedback renders the retry message after a syntax check failed.
func ValidationFeedback(errors string) string {
	return fmt.Sprintf(`Your previous fix attempt had validation errors:

**Errors**:
%s

Please fix these validation errors and try again.
If you modified multiple files, ensure ALL files are syntactically valid.`, errors)
}

// SizeFeedback renders the retry message after the size gate rejected a fix.
func SizeFeedback(totalLines int, detail string, issueLine int) string {
	return fmt.Sprintf(`Your fix changed %d lines total, which is excessive.
%s

The issue is on line %s. Please make a MINIMAL fix.`, totalLines, detail, lineLabel(issueLine))
}

func lineLabel(line int) string {
	if line <= 0 {
		return "N/A"
	}
	return strconv.Itoa(line)
}
