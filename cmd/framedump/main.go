// Command framedump decodes an event stream from stdin and prints one
// line per decoded frame. Useful for inspecting captured server output:
//
//	curl -sN -X POST $SERVER/api/workflows/$WF/stream -d @req.json | framedump
package main

import (
	"fmt"
	"io"
	"os"

	"studio-cli/internal/api"
	"studio-cli/internal/display"
)

func main() {
	var dec api.FrameDecoder
	buf := make([]byte, 4096)

	for {
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			for _, frame := range dec.Feed(buf[:n]) {
				printFrame(frame)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			display.Error(fmt.Sprintf("reading stdin: %v", err))
			os.Exit(1)
		}
	}

	if frame, ok := dec.Flush(); ok {
		printFrame(frame)
	}
}

func printFrame(frame api.StreamFrame) {
	switch frame.Kind {
	case api.FrameStatus:
		fmt.Printf("status          %s\n", display.StatusLabel(frame.Status))
	case api.FrameContent:
		fmt.Printf("content         %q\n", frame.Data)
	case api.FrameInfo:
		fmt.Printf("info            %s\n", frame.Data)
	case api.FrameToolCallStarted:
		fmt.Printf("tool_started    %s\n", frame.ToolName)
	case api.FrameToolCallCompleted:
		fmt.Printf("tool_completed  %s\n", display.ToolLabel(frame.ToolName, frame.Success))
	case api.FrameAgentResponse:
		summary := api.SummarizeAgentResponse(frame.Payload)
		fmt.Printf("agent_response  %s\n", summary)
	case api.FrameToolResponse:
		fmt.Printf("tool_response   %q\n", frame.Data)
	case api.FrameError:
		fmt.Printf("error           %s%s%s\n", display.Red, frame.Data, display.Reset)
	case api.FrameLegacyText:
		fmt.Printf("legacy_text     %q\n", frame.Data)
	}
}
