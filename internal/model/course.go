package model

// swagger:model Course
type Course struct {
	UUIDBase
	Code        string `gorm:"size:32;uniqueIndex;not null" json:"code"`
	Name        string `gorm:"size:255;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
}

func (Course) TableName() string {
	return "courses"
}

// swagger:model Class
type Class struct {
	UUIDBase
	Name         string `gorm:"size:255;not null" json:"name"`
	CourseID     string `gorm:"index;type:varchar(36)" json:"courseId"`
	InstructorID uint   `gorm:"index" json:"instructorId"`
}

func (Class) TableName() string {
	return "classes"
}

type EnrollmentStatus string

const (
	EnrollmentEnrolled  EnrollmentStatus = "enrolled"
	EnrollmentDropped   EnrollmentStatus = "dropped"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentFailed    EnrollmentStatus = "failed"
)

type ClassStudent struct {
	JoinBase
	ClassID          string           `gorm:"type:varchar(36);uniqueIndex:idx_class_student;not null" json:"classId"`
	StudentID        uint             `gorm:"uniqueIndex:idx_class_student;not null" json:"studentId"`
	EnrollmentStatus EnrollmentStatus `gorm:"size:20;default:'enrolled'" json:"enrollmentStatus"`
}

func (ClassStudent) TableName() string {
	return "class_students"
}
