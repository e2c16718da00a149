// Package headless runs scripted conversations without a terminal.
//
// A script is a YAML file listing the messages to send, the files to attach
// to each, facts to seed long-term memory with, and an optional thread name
// to save the conversation under:
//
//	name: trip-planning
//	remember:
//	  - content: I am vegetarian
//	    category: preference
//	turns:
//	  - message: Help me plan a weekend in Lisbon.
//	  - message: What should I eat there?
//	    attachments: [notes/lisbon.md]
//	save_as: lisbon
//	limits:
//	  timeout: 5m
//	  max_tokens: 50000
//	artifacts:
//	  output_dir: .recall/runs/lisbon
//
// The executor prints a JSON report to stdout once the script completes. It
// contains every turn with its tool calls and reply, the rolling summary as
// it stood at the end, and the live long-term memories. Progress goes to
// stderr. Run returns an error when any turn failed, so the caller can exit
// non-zero.
//
// Example usage:
//
//	script, err := headless.LoadScript("trip.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	executor, err := headless.NewExecutor(ag, script, headless.WithRememberer(controller))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := executor.Run(context.Background()); err != nil {
//	    os.Exit(1)
//	}
package headless
