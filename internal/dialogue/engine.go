package dialogue

import (
	"github.com/capitalize-ai/taskform-bot/internal/model"
)

// Commands accepted in the ChoseOption state.
const (
	CommandAllTasks    = "/alltasks"
	CommandTodaysTasks = "/todaystasks"
	CommandAddTask     = "/addtask"
)

// Outbound message texts.
const (
	MsgChooseOption     = "Choose an option"
	MsgMenuAllTasks     = "Display all tasks -> " + CommandAllTasks
	MsgMenuTodaysTasks  = "Display today's tasks -> " + CommandTodaysTasks
	MsgMenuAddTask      = "Add a task -> " + CommandAddTask
	MsgTextRequired     = "Please send a text message"
	MsgInvalidOption    = "Please send a valid option"
	MsgAllTasks         = "All tasks"
	MsgTodaysTasks      = "Today's tasks"
	MsgAddTask          = "Add a task"
	MsgEnterTaskName    = "Enter task name"
	MsgTaskReceived     = "Task received"
	MsgTaskSaved        = "Task saved to database"
	MsgTaskSaveFailed   = "Error saving task to database"
)

// Input is the payload of one inbound message.
type Input struct {
	Text    string
	HasText bool
}

// Text builds an input carrying a text payload.
func Text(s string) Input {
	return Input{Text: s, HasText: true}
}

// NoText builds an input for a message without text.
func NoText() Input {
	return Input{}
}

// FromPointer converts an optional text into an Input.
func FromPointer(s *string) Input {
	if s == nil {
		return NoText()
	}
	return Text(*s)
}

// Result is the outcome of one transition.
type Result struct {
	Next     State
	Outbound []string

	// Record is set only by the transition out of ReceiveTaskReminder.
	Record *model.TaskRecord
}

// Transition consumes one input in the given state. It performs no I/O.
//
// A message without text never advances the form; it is answered with a
// reprompt. AllTasks and TodaysTasks are the exception and reset on any
// input.
func Transition(state State, in Input) Result {
	if state == nil {
		state = Initial()
	}

	switch state.(type) {
	case AllTasks:
		return Result{Next: ListOptions{}, Outbound: []string{MsgAllTasks}}
	case TodaysTasks:
		return Result{Next: ListOptions{}, Outbound: []string{MsgTodaysTasks}}
	}

	if !in.HasText {
		return stay(state, MsgTextRequired)
	}
	text := in.Text

	switch s := state.(type) {
	case ListOptions:
		return Result{
			Next:     ChoseOption{Option: text},
			Outbound: []string{MsgChooseOption, MsgMenuAllTasks, MsgMenuTodaysTasks, MsgMenuAddTask},
		}

	case ChoseOption:
		switch text {
		case CommandAllTasks:
			return Result{Next: AllTasks{}}
		case CommandTodaysTasks:
			return Result{Next: TodaysTasks{}}
		case CommandAddTask:
			return Result{Next: AddTask{}}
		default:
			return stay(s, MsgInvalidOption)
		}

	case AddTask:
		return Result{
			Next:     ReceiveTask{Task: text},
			Outbound: []string{MsgAddTask, MsgEnterTaskName},
		}

	case ReceiveTask:
		return Result{
			Next:     ReceiveTaskDeadline{Task: s.Task, Deadline: text},
			Outbound: []string{MsgTaskReceived},
		}

	case ReceiveTaskDeadline:
		return Result{
			Next:     ReceiveTaskReminder{Task: s.Task, Deadline: s.Deadline, Reminder: text},
			Outbound: []string{MsgTaskReceived},
		}

	case ReceiveTaskReminder:
		return Result{
			Next:     ListOptions{},
			Outbound: []string{MsgTaskReceived},
			Record: &model.TaskRecord{
				Task:     s.Task,
				Deadline: s.Deadline,
				Reminder: s.Reminder,
			},
		}
	}

	return Transition(Initial(), in)
}

func stay(state State, msg string) Result {
	return Result{Next: state, Outbound: []string{msg}}
}
