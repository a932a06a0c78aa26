package service

import (
	"equiz_backend/internal/config"
	"equiz_backend/internal/model"
	"equiz_backend/internal/repository"
	"equiz_backend/internal/util"
	"testing"
	"time"
)

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "s3cret", ExpireTime: time.Hour}}
	auth := NewAuthService(f.users, cfg)

	user, err := auth.Register(f.ctx, RegisterRequest{Name: "Ada", Email: " Ada@Example.com ", Password: "password1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "ada@example.com" || user.Role != model.Student || user.Password == "password1" {
		t.Fatalf("user = %+v", user)
	}

	if _, err := auth.Register(f.ctx, RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "password2"}); err != util.ErrEmailRegistered {
		t.Fatalf("duplicate register err = %v", err)
	}

	if _, err := auth.Login(f.ctx, LoginRequest{Email: "ada@example.com", Password: "wrong"}); err != util.ErrInvalidLogin {
		t.Fatalf("bad password err = %v", err)
	}
	if _, err := auth.Login(f.ctx, LoginRequest{Email: "nobody@example.com", Password: "x"}); err != util.ErrInvalidLogin {
		t.Fatalf("unknown email err = %v", err)
	}

	res, err := auth.Login(f.ctx, LoginRequest{Email: "ADA@example.com", Password: "password1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := util.ParseJWT(res.Token, cfg.JWT.Secret)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != model.Student {
		t.Fatalf("claims = %+v", claims)
	}

	profile, err := auth.Profile(f.ctx, user.ID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.LastLogin == nil {
		t.Fatalf("last login not recorded")
	}
	if _, err := auth.Profile(f.ctx, 9999); err != util.ErrUserNotFound {
		t.Fatalf("missing profile err = %v", err)
	}
}

func TestLoginDisabledUser(t *testing.T) {
	f := newFixture(t)
	auth := NewAuthService(f.users, &config.Config{JWT: config.JWTConfig{Secret: "s", ExpireTime: time.Hour}})

	user, err := auth.Register(f.ctx, RegisterRequest{Name: "Bo", Email: "bo@example.com", Password: "password1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	f.db.Model(&model.User{}).Where("id = ?", user.ID).Update("disabled", true)

	if _, err := auth.Login(f.ctx, LoginRequest{Email: "bo@example.com", Password: "password1"}); err != util.ErrPermissionDenied {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
}

func TestCourseAndEnrollment(t *testing.T) {
	f := newFixture(t)
	courses := NewCourseService(repository.NewCourseRepository(f.db), f.classes, f.users)

	course, err := courses.CreateCourse(f.ctx, CreateCourseRequest{Code: " ma201 ", Name: "Algebra"})
	if err != nil {
		t.Fatalf("create course: %v", err)
	}
	if course.Code != "MA201" {
		t.Fatalf("code = %q, want MA201", course.Code)
	}
	if _, err := courses.CreateCourse(f.ctx, CreateCourseRequest{Code: "MA201", Name: "Again"}); err != util.ErrCourseCodeTaken {
		t.Fatalf("duplicate course err = %v", err)
	}

	if _, err := courses.CreateClass(f.ctx, f.instructor.ID, CreateClassRequest{Name: "B", CourseID: "missing"}); err != util.ErrCourseNotFound {
		t.Fatalf("class for missing course err = %v", err)
	}
	class, err := courses.CreateClass(f.ctx, f.instructor.ID, CreateClassRequest{Name: "B", CourseID: course.ID})
	if err != nil {
		t.Fatalf("create class: %v", err)
	}

	err = courses.Enroll(f.ctx, class.ID, EnrollRequest{StudentIDs: []uint{f.student.ID, f.instructor.ID}})
	if util.KindOf(err) != util.KindValidation {
		t.Fatalf("enrolling an instructor err = %v, want Validation", err)
	}
	if err := courses.Enroll(f.ctx, class.ID, EnrollRequest{StudentIDs: []uint{f.student.ID, f.student.ID}}); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	// enrolling again is a no-op
	if err := courses.Enroll(f.ctx, class.ID, EnrollRequest{StudentIDs: []uint{f.student.ID}}); err != nil {
		t.Fatalf("re-enroll: %v", err)
	}
	if err := courses.Enroll(f.ctx, "missing", EnrollRequest{StudentIDs: []uint{f.student.ID}}); err != util.ErrClassNotFound {
		t.Fatalf("missing class err = %v", err)
	}

	classes, err := courses.ListClasses(f.ctx, course.ID)
	if err != nil {
		t.Fatalf("list classes: %v", err)
	}
	if len(classes) != 1 || classes[0].ID != class.ID {
		t.Fatalf("classes = %+v", classes)
	}
}

func TestQuestionBank(t *testing.T) {
	f := newFixture(t)
	bank := NewQuestionService(f.questions)

	bad := []CreateQuestionRequest{
		{QuestionText: "q", QuestionType: model.MultipleChoice, Options: []OptionInput{{OptionText: "a", IsCorrect: true}}},
		{QuestionText: "q", QuestionType: model.MultipleChoice, Options: []OptionInput{{OptionText: "a"}, {OptionText: "b"}}},
		{QuestionText: "q", QuestionType: model.MultipleChoice, Options: []OptionInput{{OptionText: "a", IsCorrect: true}, {OptionText: "b", IsCorrect: true}}},
		{QuestionText: "q", QuestionType: model.TrueFalse},
		{QuestionText: "q", QuestionType: model.ShortAnswer, CorrectAnswer: "  "},
	}
	for i, req := range bad {
		if _, err := bank.Create(f.ctx, f.instructor.ID, req); util.KindOf(err) != util.KindValidation {
			t.Fatalf("case %d: err = %v, want Validation", i, err)
		}
	}

	yes := true
	tf, err := bank.Create(f.ctx, f.instructor.ID, CreateQuestionRequest{
		QuestionText: "Go has generics", QuestionType: model.TrueFalse, CorrectBoolean: &yes, CourseCode: "cs101",
	})
	if err != nil {
		t.Fatalf("create true-false: %v", err)
	}
	if tf.Points != 10 || tf.Difficulty != "medium" || tf.CourseCode != "CS101" {
		t.Fatalf("defaults = %d / %s / %s", tf.Points, tf.Difficulty, tf.CourseCode)
	}

	mc, err := bank.Create(f.ctx, f.instructor.ID, CreateQuestionRequest{
		QuestionText: "Pick primes", QuestionType: model.MultipleChoice, MultipleCorrect: true, Difficulty: "hard", CourseCode: "CS101",
		Options: []OptionInput{{OptionText: "2", IsCorrect: true}, {OptionText: "3", IsCorrect: true}, {OptionText: "4"}},
	})
	if err != nil {
		t.Fatalf("create multiple-choice: %v", err)
	}

	got, err := bank.Get(f.ctx, mc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Options) != 3 || got.Options[2].OptionText != "4" || got.Options[2].Order != 2 {
		t.Fatalf("options = %+v", got.Options)
	}
	if _, err := bank.Get(f.ctx, "missing"); err != util.ErrQuestionNotFound {
		t.Fatalf("missing question err = %v", err)
	}

	page, err := bank.Search(f.ctx, repository.QuestionFilter{CourseCode: "CS101", Difficulty: "hard"}, 1, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("total = %d, want 1", page.Total)
	}
	page, err = bank.Search(f.ctx, repository.QuestionFilter{Search: "GENERICS"}, 1, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("text search total = %d, want 1", page.Total)
	}
}
