// Package dialogue defines the conversation states of the task form and the
// transition function between them.
package dialogue

// Kind names a dialogue state variant.
type Kind string

const (
	KindListOptions         Kind = "list_options"
	KindChoseOption         Kind = "chose_option"
	KindAllTasks            Kind = "all_tasks"
	KindTodaysTasks         Kind = "todays_tasks"
	KindAddTask             Kind = "add_task"
	KindReceiveTask         Kind = "receive_task"
	KindReceiveTaskDeadline Kind = "receive_task_deadline"
	KindReceiveTaskReminder Kind = "receive_task_reminder"
)

// State is one of the variants below. The set is closed: only types in this
// package implement it.
type State interface {
	Kind() Kind
	isState()
}

// ListOptions is the initial state and the state restored on reset.
type ListOptions struct{}

// ChoseOption means the menu was shown and a command is expected.
type ChoseOption struct {
	Option string
}

// AllTasks acknowledges the /alltasks command on the next message.
type AllTasks struct{}

// TodaysTasks acknowledges the /todaystasks command on the next message.
type TodaysTasks struct{}

// AddTask is the entry point of the task form.
type AddTask struct{}

// ReceiveTask holds the task name and waits for a deadline.
type ReceiveTask struct {
	Task string
}

// ReceiveTaskDeadline holds name and deadline and waits for a reminder.
type ReceiveTaskDeadline struct {
	Task     string
	Deadline string
}

// ReceiveTaskReminder holds a complete form; the next message saves it.
type ReceiveTaskReminder struct {
	Task     string
	Deadline string
	Reminder string
}

func (ListOptions) Kind() Kind         { return KindListOptions }
func (ChoseOption) Kind() Kind         { return KindChoseOption }
func (AllTasks) Kind() Kind            { return KindAllTasks }
func (TodaysTasks) Kind() Kind         { return KindTodaysTasks }
func (AddTask) Kind() Kind             { return KindAddTask }
func (ReceiveTask) Kind() Kind         { return KindReceiveTask }
func (ReceiveTaskDeadline) Kind() Kind { return KindReceiveTaskDeadline }
func (ReceiveTaskReminder) Kind() Kind { return KindReceiveTaskReminder }

func (ListOptions) isState()         {}
func (ChoseOption) isState()         {}
func (AllTasks) isState()            {}
func (TodaysTasks) isState()         {}
func (AddTask) isState()             {}
func (ReceiveTask) isState()         {}
func (ReceiveTaskDeadline) isState() {}
func (ReceiveTaskReminder) isState() {}

// Initial returns the state assigned to a conversation on first contact.
func Initial() State {
	return ListOptions{}
}
