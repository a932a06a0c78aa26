package repository

import (
	"context"
	"equiz_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) Create(ctx context.Context, course *model.Course) error {
	return r.DB.WithContext(ctx).Create(course).Error
}

func (r *CourseRepository) FindByID(ctx context.Context, id string) (*model.Course, error) {
	var course model.Course
	err := r.DB.WithContext(ctx).First(&course, "id = ?", id).Error
	return &course, err
}

func (r *CourseRepository) List(ctx context.Context) ([]model.Course, error) {
	var courses []model.Course
	err := r.DB.WithContext(ctx).Order("code asc").Find(&courses).Error
	return courses, err
}

type ClassRepository struct {
	DB *gorm.DB
}

func NewClassRepository(db *gorm.DB) *ClassRepository {
	return &ClassRepository{DB: db}
}

func (r *ClassRepository) Create(ctx context.Context, class *model.Class) error {
	return r.DB.WithContext(ctx).Create(class).Error
}

func (r *ClassRepository) FindByID(ctx context.Context, id string) (*model.Class, error) {
	var class model.Class
	err := r.DB.WithContext(ctx).First(&class, "id = ?", id).Error
	return &class, err
}

func (r *ClassRepository) List(ctx context.Context, courseID string) ([]model.Class, error) {
	var classes []model.Class
	query := r.DB.WithContext(ctx).Model(&model.Class{})
	if courseID != "" {
		query = query.Where("course_id = ?", courseID)
	}
	err := query.Order("created_at desc").Find(&classes).Error
	return classes, err
}

// CountExisting returns how many of ids name existing classes.
func (r *ClassRepository) CountExisting(ctx context.Context, ids []string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Class{}).Where("id IN ?", ids).Count(&count).Error
	return count, err
}

// Enroll adds students to a class; existing memberships are left untouched.
func (r *ClassRepository) Enroll(ctx context.Context, classID string, studentIDs []uint) error {
	if len(studentIDs) == 0 {
		return nil
	}
	rows := make([]model.ClassStudent, 0, len(studentIDs))
	for _, id := range studentIDs {
		rows = append(rows, model.ClassStudent{
			ClassID:          classID,
			StudentID:        id,
			EnrollmentStatus: model.EnrollmentEnrolled,
		})
	}
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

// CountEligibleStudents counts distinct enrolled students across every class linked to the quiz.
func (r *ClassRepository) CountEligibleStudents(ctx context.Context, quizID string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.ClassStudent{}).
		Joins("JOIN quiz_classes qc ON qc.class_id = class_students.class_id").
		Where("qc.quiz_id = ? AND class_students.enrollment_status = ?", quizID, model.EnrollmentEnrolled).
		Distinct("class_students.student_id").
		Count(&count).Error
	return count, err
}
