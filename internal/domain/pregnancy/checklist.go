package pregnancy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DailyTask is one self-care task patients tick off each day.
type DailyTask struct {
	ID   string `json:"id"`
	Task string `json:"task"`
	When string `json:"when"`
}

// DailyTasks is the fixed daily self-care list shown in the patient portal.
var DailyTasks = []DailyTask{
	{ID: "IRON_TABLET", Task: "Take the iron supplement tablet", When: "Evening"},
	{ID: "FETAL_KICKS", Task: "Count 10 fetal movements", When: "Every day"},
	{ID: "HIGH_PROTEIN", Task: "Eat a high-protein meal", When: "Breakfast or lunch"},
}

func dailyTask(id string) (DailyTask, bool) {
	for _, t := range DailyTasks {
		if t.ID == id {
			return t, true
		}
	}
	return DailyTask{}, false
}

// ChecklistItem is a daily task with its state for one day.
type ChecklistItem struct {
	DailyTask
	Done bool `json:"done"`
}

// Checklist is a patient's daily task list for one calendar day. Ticks
// start over every day.
type Checklist struct {
	PatientID uuid.UUID       `json:"patient_id"`
	Day       time.Time       `json:"day"`
	Items     []ChecklistItem `json:"items"`
	Completed int             `json:"completed"`
	Total     int             `json:"total"`
}

func buildChecklist(patientID uuid.UUID, day time.Time, done map[string]bool) *Checklist {
	c := &Checklist{PatientID: patientID, Day: day, Total: len(DailyTasks)}
	for _, t := range DailyTasks {
		item := ChecklistItem{DailyTask: t, Done: done[t.ID]}
		if item.Done {
			c.Completed++
		}
		c.Items = append(c.Items, item)
	}
	return c
}

var errNoChecklist = errors.New("daily checklist store not configured")

// Checklist returns today's checklist for a patient.
func (s *Service) Checklist(ctx context.Context, patientID uuid.UUID) (*Checklist, error) {
	if s.checklists == nil {
		return nil, errNoChecklist
	}
	day := CalendarDay(s.now())
	done, err := s.checklists.Get(ctx, patientID, day)
	if err != nil {
		return nil, fmt.Errorf("get checklist: %w", err)
	}
	return buildChecklist(patientID, day, done), nil
}

// ToggleTask flips one of today's tasks for a patient.
func (s *Service) ToggleTask(ctx context.Context, patientID uuid.UUID, taskID string) (*Checklist, error) {
	if s.checklists == nil {
		return nil, errNoChecklist
	}
	if _, ok := dailyTask(taskID); !ok {
		return nil, fmt.Errorf("unknown daily task %q: %w", taskID, ErrValidation)
	}
	day := CalendarDay(s.now())
	var out *Checklist
	err := s.inTx(ctx, func(ctx context.Context) error {
		done, err := s.checklists.Get(ctx, patientID, day)
		if err != nil {
			return fmt.Errorf("get checklist: %w", err)
		}
		if done == nil {
			done = make(map[string]bool)
		}
		done[taskID] = !done[taskID]
		if err := s.checklists.Set(ctx, patientID, day, taskID, done[taskID]); err != nil {
			return fmt.Errorf("set checklist task: %w", err)
		}
		out = buildChecklist(patientID, day, done)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
