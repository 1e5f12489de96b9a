// Package agent implements the conversation loop that connects a chat model
// to the function bridge.
//
// Each step submits the transcript and the function catalog to the model. When
// the reply selects functions, every call is dispatched, its result envelope
// is appended as a function message and the loop repeats. A reply without
// function calls ends the run. MaxSteps bounds the number of completions.
package agent
