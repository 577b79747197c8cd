// Package testutil creates fixtures on the in-memory storage engine.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/enrollment/core/course"
	"github.com/trezcool/enrollment/core/enrollment"
	"github.com/trezcool/enrollment/core/user"
	inmemdb "github.com/trezcool/enrollment/storage/database/inmem"
)

// Store bundles an in-memory database with its repositories.
type Store struct {
	DB      *inmemdb.DB
	UsrRepo user.Repository
	CrsRepo course.Repository
	EnrRepo enrollment.Repository
}

func NewStore() *Store {
	db := inmemdb.Open()
	return &Store{
		DB:      db,
		UsrRepo: inmemdb.NewUserRepository(db),
		CrsRepo: inmemdb.NewCourseRepository(db),
		EnrRepo: inmemdb.NewEnrollmentRepository(db),
	}
}

// CreateUser saves a user; an empty `pwd` leaves the password hash empty.
func CreateUser(t *testing.T, repo user.Repository, uname, first, last, pwd string, role user.Role) user.User {
	usr := user.User{
		Username:  uname,
		FirstName: first,
		LastName:  last,
		Role:      role,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(t *testing.T, repo course.Repository, name string, teacherID, capacity int) course.Course {
	crs, err := repo.CreateCourse(context.Background(), course.Course{
		Name:      name,
		TeacherID: teacherID,
		Time:      "MWF 10:00-10:50 AM",
		Capacity:  capacity,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}

// Enroll saves an enrollment; a nil `grade` leaves it ungraded.
func Enroll(t *testing.T, repo enrollment.Repository, studentID, courseID int, grade *int) enrollment.Enrollment {
	enr := enrollment.Enrollment{
		StudentID:    studentID,
		CourseID:     courseID,
		Grade:        null.IntFromPtr(grade),
		EnrolledDate: time.Now().UTC(),
	}
	enr, err := repo.CreateEnrollment(context.Background(), enr)
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	return enr
}

func IntPtr(i int) *int { return &i }
