package inmemdb

import (
	"sync"

	"github.com/pulseed/pulseed/core/alert"
	"github.com/pulseed/pulseed/core/feedback"
	"github.com/pulseed/pulseed/core/teacher"
)

type (
	DB struct {
		teacher  *teacherTable
		student  *studentTable
		feedback *feedbackTable
		alert    *alertTable
	}

	teacherTable struct {
		table map[string]*teacher.Teacher
		mutex sync.RWMutex
	}

	studentTable struct {
		table map[string]*teacher.Student
		mutex sync.RWMutex
	}

	feedbackTable struct {
		table map[string]*feedback.Entry
		mutex sync.RWMutex
	}

	alertTable struct {
		table map[string]*alert.Entry
		mutex sync.RWMutex
	}
)

func Open() *DB {
	return &DB{
		teacher:  &teacherTable{table: make(map[string]*teacher.Teacher)},
		student:  &studentTable{table: make(map[string]*teacher.Student)},
		feedback: &feedbackTable{table: make(map[string]*feedback.Entry)},
		alert:    &alertTable{table: make(map[string]*alert.Entry)},
	}
}
