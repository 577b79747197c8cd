// Package seed loads the demo accounts, courses and enrollments into an empty store.
package seed

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/enrollment/core"
	"github.com/trezcool/enrollment/core/course"
	"github.com/trezcool/enrollment/core/enrollment"
	"github.com/trezcool/enrollment/core/user"
)

type (
	demoUser struct {
		username, first, last, pwd string
		role                       user.Role
	}

	demoCourse struct {
		name, teacher, time string
		capacity            int
	}

	demoEnrollment struct {
		student, course string
		grade           int
	}
)

var (
	users = []demoUser{
		{"admin", "Admin", "User", "admin123", user.RoleAdmin},

		{"ahepworth", "Ammon", "Hepworth", "teacher123", user.RoleTeacher},
		{"swalker", "Susan", "Walker", "teacher123", user.RoleTeacher},
		{"rjenkins", "Ralph", "Jenkins", "teacher123", user.RoleTeacher},

		{"cnorris", "Chuck", "Norris", "student123", user.RoleStudent},
		{"mnorris", "Mindy", "Norris", "student123", user.RoleStudent},
		{"aranganath", "Aditya", "Ranganath", "student123", user.RoleStudent},
		{"nlittle", "Nancy", "Little", "student123", user.RoleStudent},
		{"ychen", "Yi Wen", "Chen", "student123", user.RoleStudent},
		{"jstuart", "John", "Stuart", "student123", user.RoleStudent},
		{"jsantos", "Jose", "Santos", "student123", user.RoleStudent},
		{"bbrown", "Betty", "Brown", "student123", user.RoleStudent},
		{"lcheng", "Li", "Cheng", "student123", user.RoleStudent},
		{"mgarcia", "Michael", "Garcia", "student123", user.RoleStudent},
		{"ewhite", "Emily", "White", "student123", user.RoleStudent},
		{"rjohnson", "Robert", "Johnson", "student123", user.RoleStudent},
		{"amartinez", "Anna", "Martinez", "student123", user.RoleStudent},
		{"tkim", "Thomas", "Kim", "student123", user.RoleStudent},
		{"jwilson", "Jessica", "Wilson", "student123", user.RoleStudent},
		{"dclark", "Daniel", "Clark", "student123", user.RoleStudent},
		{"smoore", "Sophia", "Moore", "student123", user.RoleStudent},
		{"ataylor", "Alex", "Taylor", "student123", user.RoleStudent},
		{"mhughes", "Maya", "Hughes", "student123", user.RoleStudent},
		{"cwright", "Chris", "Wright", "student123", user.RoleStudent},
	}

	courses = []demoCourse{
		{"Math 101", "rjenkins", "MWF 10:00-10:50 AM", 8},
		{"Physics 121", "swalker", "TR 11:00-11:50 AM", 10},
		{"CS 106", "ahepworth", "MWF 2:00-2:50 PM", 10},
		{"CS 162", "ahepworth", "TR 3:00-3:50 PM", 4},
	}

	enrollments = []demoEnrollment{
		{"aranganath", "Math 101", 92},
		{"nlittle", "Math 101", 65},
		{"mnorris", "Math 101", 86},
		{"ychen", "Math 101", 77},
		{"jstuart", "Physics 121", 53},
		{"ychen", "Physics 121", 85},
		{"cnorris", "Physics 121", 94},
		{"mnorris", "Physics 121", 91},
		{"nlittle", "Physics 121", 88},
		{"jsantos", "CS 106", 93},
		{"bbrown", "CS 106", 85},
		{"jstuart", "CS 106", 57},
		{"cnorris", "CS 106", 68},
		{"jsantos", "CS 162", 99},
		{"jstuart", "CS 162", 87},
		{"bbrown", "CS 162", 92},
		{"mnorris", "CS 162", 67},
	}
)

type Seeder struct {
	tx      core.Transactor
	usrRepo user.Repository
	crsRepo course.Repository
	enrRepo enrollment.Repository
}

func NewSeeder(tx core.Transactor, usrRepo user.Repository, crsRepo course.Repository, enrRepo enrollment.Repository) *Seeder {
	return &Seeder{tx: tx, usrRepo: usrRepo, crsRepo: crsRepo, enrRepo: enrRepo}
}

// Run loads the demo data, in one transaction, if there are no users yet. It reports whether data was loaded.
func (s *Seeder) Run(ctx context.Context) (bool, error) {
	count, err := s.usrRepo.CountUsers(ctx)
	if err != nil {
		return false, errors.Wrap(err, "counting users")
	}
	if count > 0 {
		return false, nil
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		userIDs := make(map[string]int, len(users))
		for _, du := range users {
			usr := user.User{Username: du.username, Role: du.role, FirstName: du.first, LastName: du.last}
			if err := usr.SetPassword(du.pwd); err != nil {
				return errors.Wrap(err, "hashing password")
			}
			usr, err := s.usrRepo.CreateUser(ctx, usr)
			if err != nil {
				return errors.Wrapf(err, "creating user %q", du.username)
			}
			userIDs[usr.Username] = usr.ID
		}

		courseIDs := make(map[string]int, len(courses))
		for _, dc := range courses {
			crs, err := s.crsRepo.CreateCourse(ctx, course.Course{
				Name:      dc.name,
				TeacherID: userIDs[dc.teacher],
				Time:      dc.time,
				Capacity:  dc.capacity,
			})
			if err != nil {
				return errors.Wrapf(err, "creating course %q", dc.name)
			}
			courseIDs[crs.Name] = crs.ID
		}

		now := time.Now().UTC()
		for _, de := range enrollments {
			if _, err := s.enrRepo.CreateEnrollment(ctx, enrollment.Enrollment{
				StudentID:    userIDs[de.student],
				CourseID:     courseIDs[de.course],
				Grade:        null.IntFrom(de.grade),
				EnrolledDate: now,
			}); err != nil {
				return errors.Wrapf(err, "enrolling %q in %q", de.student, de.course)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
