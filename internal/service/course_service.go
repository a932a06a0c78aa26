package service

import (
	"context"
	"equiz_backend/internal/model"
	"equiz_backend/internal/repository"
	"equiz_backend/internal/util"
	"errors"
	"strings"

	"gorm.io/gorm"
)

type CourseService struct {
	CourseRepo *repository.CourseRepository
	ClassRepo  *repository.ClassRepository
	UserRepo   *repository.UserRepository
}

func NewCourseService(courseRepo *repository.CourseRepository, classRepo *repository.ClassRepository, userRepo *repository.UserRepository) *CourseService {
	return &CourseService{CourseRepo: courseRepo, ClassRepo: classRepo, UserRepo: userRepo}
}

type CreateCourseRequest struct {
	Code        string `json:"code" binding:"required,max=32"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (s *CourseService) CreateCourse(ctx context.Context, req CreateCourseRequest) (*model.Course, error) {
	course := &model.Course{
		Code:        strings.ToUpper(strings.TrimSpace(req.Code)),
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.CourseRepo.Create(ctx, course); errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, util.ErrCourseCodeTaken
	} else if err != nil {
		return nil, util.Persistence(err)
	}
	return course, nil
}

func (s *CourseService) ListCourses(ctx context.Context) ([]model.Course, error) {
	courses, err := s.CourseRepo.List(ctx)
	return courses, util.Persistence(err)
}

type CreateClassRequest struct {
	Name     string `json:"name" binding:"required"`
	CourseID string `json:"courseId" binding:"required"`
}

func (s *CourseService) CreateClass(ctx context.Context, instructorID uint, req CreateClassRequest) (*model.Class, error) {
	if _, err := s.CourseRepo.FindByID(ctx, req.CourseID); errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	} else if err != nil {
		return nil, util.Persistence(err)
	}

	class := &model.Class{Name: req.Name, CourseID: req.CourseID, InstructorID: instructorID}
	if err := s.ClassRepo.Create(ctx, class); err != nil {
		return nil, util.Persistence(err)
	}
	return class, nil
}

func (s *CourseService) ListClasses(ctx context.Context, courseID string) ([]model.Class, error) {
	classes, err := s.ClassRepo.List(ctx, courseID)
	return classes, util.Persistence(err)
}

type EnrollRequest struct {
	StudentIDs []uint `json:"studentIds" binding:"required,min=1"`
}

// Enroll adds students to a class. Every id must name a student account.
func (s *CourseService) Enroll(ctx context.Context, classID string, req EnrollRequest) error {
	if _, err := s.ClassRepo.FindByID(ctx, classID); errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrClassNotFound
	} else if err != nil {
		return util.Persistence(err)
	}

	distinct := make(map[uint]bool, len(req.StudentIDs))
	ids := make([]uint, 0, len(req.StudentIDs))
	for _, id := range req.StudentIDs {
		if !distinct[id] {
			distinct[id] = true
			ids = append(ids, id)
		}
	}
	n, err := s.UserRepo.CountStudents(ctx, ids)
	if err != nil {
		return util.Persistence(err)
	}
	if int(n) != len(ids) {
		return util.Validation("studentIds must all refer to student accounts")
	}
	return util.Persistence(s.ClassRepo.Enroll(ctx, classID, ids))
}
