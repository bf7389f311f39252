package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/ratiba/apps/api/echo"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/user"
)

func intPtr(i int) *int { return &i }

func TestScheduleApi_availability(t *testing.T) {
	env := setup(t)
	tnt := env.createTenant(t, "Goma Flight School", "goma")
	instructor := env.createUser(t, tnt.ID, "pilot@school.cd", user.RoleInstructor)
	student := env.createUser(t, tnt.ID, "student@school.cd", user.RoleStudent)

	body := marchallObj(t, schedule.NewAvailability{DayOfWeek: intPtr(1), StartTime: "09:00", EndTime: "17:00"})

	// students cannot publish availability
	req, rec := newAuthRequest(http.MethodPost, "/v1/availability", getToken(t, student), body)
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)

	req, rec = newAuthRequest(http.MethodPost, "/v1/availability", getToken(t, instructor), body)
	env.app.ServeHTTP(rec, req)
	checkCode(t, http.StatusCreated, rec)
	var slot schedule.Availability
	unmarchallObj(t, rec, &slot)
	assert.Equal(t, instructor.ID, slot.InstructorID)
	assert.Equal(t, 1, slot.DayOfWeek)

	// rejected payloads
	bad := marchallObj(t, schedule.NewAvailability{DayOfWeek: intPtr(7), StartTime: "09:00", EndTime: "17:00"})
	req, rec = newAuthRequest(http.MethodPost, "/v1/availability", getToken(t, instructor), bad)
	env.app.ServeHTTP(rec, req)
	checkCode(t, http.StatusBadRequest, rec)

	// own listing
	req, rec = newAuthRequest(http.MethodGet, "/v1/availability", getToken(t, instructor))
	env.app.ServeHTTP(rec, req)
	checkCode(t, http.StatusOK, rec)
	var slots []schedule.Availability
	unmarchallObj(t, rec, &slots)
	assert.Len(t, slots, 1)

	// students browse an instructor's slots
	req, rec = newAuthRequest(http.MethodGet, "/v1/instructors/"+instructor.ID+"/availability", getToken(t, student))
	env.app.ServeHTTP(rec, req)
	checkCode(t, http.StatusOK, rec)
	unmarchallObj(t, rec, &slots)
	assert.Len(t, slots, 1)

	// but only instructors are browsable
	req, rec = newAuthRequest(http.MethodGet, "/v1/instructors/"+student.ID+"/availability", getToken(t, student))
	env.app.ServeHTTP(rec, req)
	checkCode(t, http.StatusNotFound, rec)

	// delete; a second delete reports not found
	req, rec = newAuthRequest(http.MethodDelete, "/v1/availability/"+slot.ID, getToken(t, instructor))
	env.app.ServeHTTP(rec, req)
	checkCode(t, http.StatusNoContent, rec)
	req, rec = newAuthRequest(http.MethodDelete, "/v1/availability/"+slot.ID, getToken(t, instructor))
	env.app.ServeHTTP(rec, req)
	checkCode(t, http.StatusNotFound, rec)
}

func TestScheduleApi_createBooking(t *testing.T) {
	env := setup(t)
	tnt := env.createTenant(t, "Goma Flight School", "goma")
	student := env.createUser(t, tnt.ID, "student@school.cd", user.RoleStudent)
	instructor := env.createUser(t, tnt.ID, "pilot@school.cd", user.RoleInstructor)

	// only students book
	body := marchallObj(t, schedule.NewBooking{Date: "2025-03-02", StartTime: "09:00", EndTime: "10:00"})
	req, rec := newAuthRequest(http.MethodPost, "/v1/bookings", getToken(t, instructor), body)
	env.app.ServeHTTP(rec, req)
	checkCode(t, http.StatusForbidden, rec)

	req, rec = newAuthRequest(http.MethodPost, "/v1/bookings", getToken(t, student), body)
	env.app.ServeHTTP(rec, req)
	checkCode(t, http.StatusCreated, rec)
	var b schedule.Booking
	unmarchallObj(t, rec, &b)
	assert.Equal(t, schedule.BookingStatusRequested, b.Status)
	assert.Equal(t, student.ID, b.StudentID)
	assert.Empty(t, b.InstructorID)

	// overlapping requests are accepted; conflicts only bite on assignment
	req, rec = newAuthRequest(http.MethodPost, "/v1/bookings", getToken(t, student), body)
	env.app.ServeHTTP(rec, req)
	checkCode(t, http.StatusCreated, rec)

	// a preferred instructor must exist
	bad := marchallObj(t, schedule.NewBooking{InstructorID: "nope", Date: "2025-03-02", StartTime: "10:00", EndTime: "11:00"})
	req, rec = newAuthRequest(http.MethodPost, "/v1/bookings", getToken(t, student), bad)
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"instructor_id": "instructor not found"})}, rec)

	// end before start
	bad = marchallObj(t, schedule.NewBooking{Date: "2025-03-02", StartTime: "10:00", EndTime: "09:00"})
	req, rec = newAuthRequest(http.MethodPost, "/v1/bookings", getToken(t, student), bad)
	env.app.ServeHTTP(rec, req)
	checkCode(t, http.StatusBadRequest, rec)
}

func TestScheduleApi_assignBooking(t *testing.T) {
	env := setup(t)
	ctx := testCtx()
	tnt := env.createTenant(t, "Goma Flight School", "goma")
	admin := env.createUser(t, tnt.ID, "admin@school.cd", user.RoleAdmin)
	student := env.createUser(t, tnt.ID, "student@school.cd", user.RoleStudent)
	instructor := env.createUser(t, tnt.ID, "pilot@school.cd", user.RoleInstructor)

	b1, err := env.schedSvc.CreateBooking(ctx, tnt.ID, student.ID, schedule.NewBooking{Date: "2025-03-02", StartTime: "09:00", EndTime: "10:00"})
	if err != nil {
		t.Fatalf("CreateBooking() failed: %v", err)
	}
	b2, err := env.schedSvc.CreateBooking(ctx, tnt.ID, student.ID, schedule.NewBooking{Date: "2025-03-02", StartTime: "09:30", EndTime: "10:30"})
	if err != nil {
		t.Fatalf("CreateBooking() failed: %v", err)
	}

	body := marchallObj(t, AssignRequest{InstructorID: instructor.ID})

	// admin only
	req, rec := newAuthRequest(http.MethodPost, "/v1/bookings/"+b1.ID+"/assign", getToken(t, student), body)
	env.app.ServeHTTP(rec, req)
	checkCode(t, http.StatusForbidden, rec)

	req, rec = newAuthRequest(http.MethodPost, "/v1/bookings/"+b1.ID+"/assign", getToken(t, admin), body)
	env.app.ServeHTTP(rec, req)
	checkCode(t, http.StatusOK, rec)
	var got schedule.Booking
	unmarchallObj(t, rec, &got)
	assert.Equal(t, schedule.BookingStatusAssigned, got.Status)
	assert.Equal(t, instructor.ID, got.InstructorID)

	// an overlapping second assignment conflicts
	req, rec = newAuthRequest(http.MethodPost, "/v1/bookings/"+b2.ID+"/assign", getToken(t, admin), body)
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: schedule.ErrBookingConflict.Error()})}, rec)

	// the assignee must be an instructor
	body = marchallObj(t, AssignRequest{InstructorID: student.ID})
	req, rec = newAuthRequest(http.MethodPost, "/v1/bookings/"+b2.ID+"/assign", getToken(t, admin), body)
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"instructor_id": "instructor not found"})}, rec)

	// unknown booking
	body = marchallObj(t, AssignRequest{InstructorID: instructor.ID})
	req, rec = newAuthRequest(http.MethodPost, "/v1/bookings/nope/assign", getToken(t, admin), body)
	env.app.ServeHTTP(rec, req)
	checkCode(t, http.StatusNotFound, rec)
}

func TestScheduleApi_bookingStatus(t *testing.T) {
	env := setup(t)
	ctx := testCtx()
	tnt := env.createTenant(t, "Goma Flight School", "goma")
	admin := env.createUser(t, tnt.ID, "admin@school.cd", user.RoleAdmin)
	student := env.createUser(t, tnt.ID, "student@school.cd", user.RoleStudent)
	instructor := env.createUser(t, tnt.ID, "pilot@school.cd", user.RoleInstructor)

	newBooking := func(start, end string) schedule.Booking {
		b, err := env.schedSvc.CreateBooking(ctx, tnt.ID, student.ID, schedule.NewBooking{Date: "2025-03-02", StartTime: start, EndTime: end})
		if err != nil {
			t.Fatalf("CreateBooking() failed: %v", err)
		}
		return b
	}
	setStatus := func(b schedule.Booking, status string, actor user.User) (*schedule.Booking, int) {
		body := marchallObj(t, StatusUpdateRequest{Status: status})
		req, rec := newAuthRequest(http.MethodPut, "/v1/bookings/"+b.ID+"/status", getToken(t, actor), body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			return nil, rec.Code
		}
		var got schedule.Booking
		unmarchallObj(t, rec, &got)
		return &got, rec.Code
	}

	// student cancels own request; status is case-insensitive
	b := newBooking("09:00", "10:00")
	got, code := setStatus(b, "cancelled", student)
	if assert.Equal(t, http.StatusOK, code) {
		assert.Equal(t, schedule.BookingStatusCancelled, got.Status)
	}

	// terminal states reject further transitions
	_, code = setStatus(b, "COMPLETED", admin)
	assert.Equal(t, http.StatusBadRequest, code)

	// REQUESTED cannot jump straight to COMPLETED
	b = newBooking("10:00", "11:00")
	_, code = setStatus(b, "COMPLETED", admin)
	assert.Equal(t, http.StatusBadRequest, code)

	// admin approves without assigning
	got, code = setStatus(b, "APPROVED", admin)
	if assert.Equal(t, http.StatusOK, code) {
		assert.Equal(t, schedule.BookingStatusApproved, got.Status)
	}

	// instructors only complete their own assigned bookings
	b = newBooking("11:00", "12:00")
	if _, err := env.schedSvc.ApproveAndAssign(ctx, tnt.ID, b.ID, instructor.ID, admin.ID); err != nil {
		t.Fatalf("ApproveAndAssign() failed: %v", err)
	}
	other := env.createUser(t, tnt.ID, "pilot2@school.cd", user.RoleInstructor)
	_, code = setStatus(b, "COMPLETED", other)
	assert.Equal(t, http.StatusForbidden, code)
	got, code = setStatus(b, "COMPLETED", instructor)
	if assert.Equal(t, http.StatusOK, code) {
		assert.Equal(t, schedule.BookingStatusCompleted, got.Status)
	}
}

func TestScheduleApi_retrieveAndQueryBookings(t *testing.T) {
	env := setup(t)
	ctx := testCtx()
	tnt := env.createTenant(t, "Goma Flight School", "goma")
	admin := env.createUser(t, tnt.ID, "admin@school.cd", user.RoleAdmin)
	student := env.createUser(t, tnt.ID, "student@school.cd", user.RoleStudent)
	other := env.createUser(t, tnt.ID, "student2@school.cd", user.RoleStudent)
	instructor := env.createUser(t, tnt.ID, "pilot@school.cd", user.RoleInstructor)

	b, err := env.schedSvc.CreateBooking(ctx, tnt.ID, student.ID, schedule.NewBooking{Date: "2025-03-02", StartTime: "09:00", EndTime: "10:00"})
	if err != nil {
		t.Fatalf("CreateBooking() failed: %v", err)
	}

	// owners and admins see it, other students do not
	for _, tt := range []struct {
		name     string
		actor    user.User
		wantCode int
	}{
		{"owner", student, http.StatusOK},
		{"admin", admin, http.StatusOK},
		{"other student", other, http.StatusNotFound},
		{"unassigned instructor", instructor, http.StatusNotFound},
	} {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/bookings/"+b.ID, getToken(t, tt.actor))
			env.app.ServeHTTP(rec, req)
			checkCode(t, tt.wantCode, rec)
		})
	}

	// listing is role-scoped
	if _, err = env.schedSvc.CreateBooking(ctx, tnt.ID, other.ID, schedule.NewBooking{Date: "2025-03-02", StartTime: "10:00", EndTime: "11:00"}); err != nil {
		t.Fatalf("CreateBooking() failed: %v", err)
	}
	query := func(actor user.User, path string) []schedule.Booking {
		req, rec := newAuthRequest(http.MethodGet, path, getToken(t, actor))
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)
		var bookings []schedule.Booking
		unmarchallObj(t, rec, &bookings)
		return bookings
	}
	assert.Len(t, query(admin, "/v1/bookings"), 2)
	assert.Len(t, query(student, "/v1/bookings"), 1)
	assert.Empty(t, query(instructor, "/v1/bookings"))

	// week filter
	assert.Len(t, query(admin, "/v1/bookings?week=2025-03-02"), 2)
	assert.Empty(t, query(admin, "/v1/bookings?week=2025-03-09"))
	req, rec := newAuthRequest(http.MethodGet, "/v1/bookings?week=lol", getToken(t, admin))
	env.app.ServeHTTP(rec, req)
	checkCode(t, http.StatusBadRequest, rec)
}

func TestScheduleApi_conflictCheck(t *testing.T) {
	env := setup(t)
	ctx := testCtx()
	tnt := env.createTenant(t, "Goma Flight School", "goma")
	admin := env.createUser(t, tnt.ID, "admin@school.cd", user.RoleAdmin)
	student := env.createUser(t, tnt.ID, "student@school.cd", user.RoleStudent)
	instructor := env.createUser(t, tnt.ID, "pilot@school.cd", user.RoleInstructor)

	b, err := env.schedSvc.CreateBooking(ctx, tnt.ID, student.ID, schedule.NewBooking{Date: "2025-03-02", StartTime: "09:00", EndTime: "10:00"})
	if err != nil {
		t.Fatalf("CreateBooking() failed: %v", err)
	}
	if _, err = env.schedSvc.ApproveAndAssign(ctx, tnt.ID, b.ID, instructor.ID, admin.ID); err != nil {
		t.Fatalf("ApproveAndAssign() failed: %v", err)
	}

	check := func(query string) ConflictCheckResponse {
		req, rec := newAuthRequest(http.MethodGet, "/v1/bookings/conflict-check?instructor_id="+instructor.ID+"&date=2025-03-02"+query, getToken(t, admin))
		env.app.ServeHTTP(rec, req)
		checkCode(t, http.StatusOK, rec)
		var resp ConflictCheckResponse
		unmarchallObj(t, rec, &resp)
		return resp
	}

	assert.True(t, check("&start=09:30&end=10:30").Conflict)
	assert.False(t, check("&start=10:00&end=11:00").Conflict, "back-to-back slots do not conflict")
	assert.False(t, check("&start=09:30&end=10:30&exclude="+b.ID).Conflict)

	// admin only
	req, rec := newAuthRequest(http.MethodGet, "/v1/bookings/conflict-check?instructor_id="+instructor.ID+"&date=2025-03-02&start=09:00&end=10:00", getToken(t, student))
	env.app.ServeHTTP(rec, req)
	checkCode(t, http.StatusForbidden, rec)

	// missing params
	req, rec = newAuthRequest(http.MethodGet, "/v1/bookings/conflict-check?instructor_id="+instructor.ID, getToken(t, admin))
	env.app.ServeHTTP(rec, req)
	checkCode(t, http.StatusBadRequest, rec)
}
