package dto

// SeedUser is an account fixture.
type SeedUser struct {
	ID    uint   `json:"id" validate:"required,gt=0"`
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=teacher student admin"`
}

// SeedClassroom is a classroom fixture with its teacher memberships.
type SeedClassroom struct {
	ID         uint   `json:"id" validate:"required,gt=0"`
	Name       string `json:"name" validate:"required,max=255"`
	TeacherIDs []uint `json:"teacher_ids" validate:"dive,gt=0"`
}

// SeedSubject belongs to a seeded classroom.
type SeedSubject struct {
	ID          uint   `json:"id" validate:"required,gt=0"`
	ClassroomID uint   `json:"classroom_id" validate:"required,gt=0"`
	Name        string `json:"name" validate:"required,max=255"`
}

// SeedModule belongs to a seeded subject.
type SeedModule struct {
	ID        uint   `json:"id" validate:"required,gt=0"`
	SubjectID uint   `json:"subject_id" validate:"required,gt=0"`
	Title     string `json:"title" validate:"required,max=255"`
}

// SeedLesson belongs to a seeded module.
type SeedLesson struct {
	ID       uint   `json:"id" validate:"required,gt=0"`
	ModuleID uint   `json:"module_id" validate:"required,gt=0"`
	Title    string `json:"title" validate:"required,max=255"`
}

// SeedClassroomsRequest is the fixture payload for development environments.
// A student profile is created for every user with the student role.
type SeedClassroomsRequest struct {
	Users      []SeedUser      `json:"users" validate:"dive"`
	Classrooms []SeedClassroom `json:"classrooms" validate:"dive"`
	Subjects   []SeedSubject   `json:"subjects" validate:"dive"`
	Modules    []SeedModule    `json:"modules" validate:"dive"`
	Lessons    []SeedLesson    `json:"lessons" validate:"dive"`
}
