package models

import "testing"

func TestDecodeAgentResponse(t *testing.T) {
	raw := `{"response":"Ready.","next":"confirm","tool":"SearchFlights","args":{"origin":"SFO","dest":"SYD"},"force_confirm":true}`
	a := DecodeAgentResponse(raw)

	if a.Response != "Ready." {
		t.Errorf("Response = %q", a.Response)
	}
	if a.Next != NextConfirm {
		t.Errorf("Next = %q", a.Next)
	}
	if a.Tool != "SearchFlights" {
		t.Errorf("Tool = %q", a.Tool)
	}
	if !a.ForceConfirm {
		t.Error("ForceConfirm should be true")
	}
	if a.ArgCount() != 2 {
		t.Errorf("ArgCount() = %d", a.ArgCount())
	}
}

func TestDecodeAgentResponseWeakTypes(t *testing.T) {
	a := DecodeAgentResponse(`{"next":"confirm","tool":"X","force_confirm":"true"}`)
	if !a.ForceConfirm {
		t.Error("string \"true\" should decode to true")
	}
}

func TestDecodeAgentResponseNull(t *testing.T) {
	a := DecodeAgentResponse(`null`)
	if a.Response != "" || a.Next != "" {
		t.Errorf("unexpected decode of null: %+v", a)
	}
	if a.ArgCount() != 0 {
		t.Error("ArgCount() should be 0 without args")
	}
}

func TestRequiresConfirm(t *testing.T) {
	tests := []struct {
		name   string
		a      AgentResponse
		isLast bool
		want   bool
		chose  bool
	}{
		{"confirm last", AgentResponse{Next: NextConfirm, Tool: "T", ForceConfirm: true}, true, true, false},
		{"confirm not last", AgentResponse{Next: NextConfirm, Tool: "T", ForceConfirm: true}, false, false, true},
		{"no force", AgentResponse{Next: NextConfirm, Tool: "T"}, true, false, true},
		{"question", AgentResponse{Next: NextQuestion, Tool: "T", ForceConfirm: true}, true, false, false},
		{"no tool", AgentResponse{Next: NextConfirm}, true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.RequiresConfirm(tt.isLast); got != tt.want {
				t.Errorf("RequiresConfirm() = %v, want %v", got, tt.want)
			}
			if got := tt.a.ChoseTool(tt.isLast); got != tt.chose {
				t.Errorf("ChoseTool() = %v, want %v", got, tt.chose)
			}
		})
	}
}

func TestDisplayText(t *testing.T) {
	a := AgentResponse{Response: "  hello \n", Next: NextQuestion}
	if got := a.DisplayText(true); got != "hello" {
		t.Errorf("DisplayText() = %q", got)
	}

	empty := AgentResponse{Next: NextConfirm, Tool: "CreateInvoice", ForceConfirm: true}
	want := `Agent is ready to run "CreateInvoice". Please confirm.`
	if got := empty.DisplayText(true); got != want {
		t.Errorf("DisplayText() = %q, want %q", got, want)
	}
	if got := empty.DisplayText(false); got != "" {
		t.Errorf("DisplayText(false) = %q, want empty", got)
	}
}

func TestToolName(t *testing.T) {
	if (AgentResponse{}).ToolName() != UnknownTool {
		t.Error("empty tool should report UnknownTool")
	}
	if (AgentResponse{Tool: "FindEvents"}).ToolName() != "FindEvents" {
		t.Error("ToolName should return tool")
	}
}
