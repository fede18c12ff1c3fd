package graph

// Node labels persisted in the graph.
const (
	LabelSession   = "Session"
	LabelThought   = "Thought"
	LabelReasoning = "Reasoning"
	LabelToolCall  = "ToolCall"
	LabelFileTouch = "FileTouch"
)

// Edge relationship types.
//
// TRIGGERS links a Session to its first Thought, and Reasoning nodes to the
// ToolCall they triggered. NEXT chains Thoughts linearly per session,
// strictly ordered by vt_start ascending with no branching. YIELDS links a
// Thought to a ToolCall it produced.
const (
	EdgeTriggers = "TRIGGERS"
	EdgeNext     = "NEXT"
	EdgeYields   = "YIELDS"
)

// Tool types inferred from tool names.
const (
	ToolTypeFileRead  = "file_read"
	ToolTypeFileWrite = "file_write"
	ToolTypeFileEdit  = "file_edit"
	ToolTypeBashExec  = "bash_exec"
	ToolTypeFileGlob  = "file_glob"
	ToolTypeFileGrep  = "file_grep"
	ToolTypeMCP       = "mcp"
	ToolTypeGeneric   = "generic"
)

// File actions recorded on tool calls and file touches.
const (
	FileActionRead  = "read"
	FileActionWrite = "write"
	FileActionEdit  = "edit"
)
