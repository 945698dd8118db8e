package dsw

// IntervalType is the scheduling granularity the timetable site
// accepts in its `parametry` form field.
type IntervalType int

const (
	IntervalWeek     IntervalType = 1
	IntervalMonth    IntervalType = 2
	IntervalSemester IntervalType = 3
)

// ScheduleEvent is one class session parsed out of a timetable grid.
// A teacher id of 0 means the row had no teacher link.
type ScheduleEvent struct {
	Title string `json:"title"`

	TeacherName  string `json:"teacherName,omitempty"`
	TeacherId    int    `json:"teacherId,omitempty"`
	TeacherEmail string `json:"teacherEmail,omitempty"`

	Room       string `json:"room,omitempty"`
	Type       string `json:"type,omitempty"`
	Grading    string `json:"grading,omitempty"`
	StudyTrack string `json:"studyTrack,omitempty"`
	Groups     string `json:"groups,omitempty"`
	Remarks    string `json:"remarks,omitempty"`

	StartISO string `json:"startISO"`
	EndISO   string `json:"endISO"`
}

// TeacherInfo holds the fields scraped from a teacher's profile page.
// Every field is optional, the page layout varies a lot.
type TeacherInfo struct {
	Name       string
	Title      string
	Department string
	Email      string
	Phone      string
	AboutHTML  string
}

// TeacherCard is a teacher profile merged with their schedule. Id 0 is
// a valid "unknown teacher" sentinel; a card carrying only id and name
// is the degraded form returned when a detail fetch fails.
type TeacherCard struct {
	Id         int             `json:"id"`
	Name       string          `json:"name,omitempty"`
	Title      string          `json:"title,omitempty"`
	Department string          `json:"department,omitempty"`
	Email      string          `json:"email,omitempty"`
	Phone      string          `json:"phone,omitempty"`
	AboutHTML  string          `json:"aboutHTML,omitempty"`
	Schedule   []ScheduleEvent `json:"schedule"`
}

type TrackInfo struct {
	TrackId int    `json:"trackId"`
	Title   string `json:"title"`
}

// GroupInfo is one row of the group search results.
type GroupInfo struct {
	GroupId int         `json:"groupId"`
	Code    string      `json:"code"`
	Name    string      `json:"name"`
	Tracks  []TrackInfo `json:"tracks"`
	Program string      `json:"program"`
	Faculty string      `json:"faculty"`
}
