package dsw

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"dswagg-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Parser turns the DevExpress grid HTML the timetable site returns
// into structured events. The column order of the grid is not stable
// across views, so every field is recovered by scanning all cells of a
// row with one rule per field.
type Parser struct{}

func NewParser() Parser {
	return Parser{}
}

// the grid comes back wrapped in a DevExpress callback payload
const dxCallbackMarker = "/*DXHTML*/"

func unwrapDXHTML(raw string) string {
	_, after, found := strings.Cut(raw, dxCallbackMarker)
	if found {
		return after
	}
	return raw
}

var lessonTypes = map[string]bool{
	"Wyk":   true,
	"Cw":    true,
	"Sem":   true,
	"Labor": true,
	"Proj":  true,
	"Konw":  true,
	"Prac":  true,
}

var gradingKeywords = []string{"Zaliczenie", "Egzamin", "Nie dotyczy"}

var remarkPhrases = map[string]bool{
	"Brak":                   true,
	"Distance learning":      true,
	"Sala na zajęcia zdalne": true,
	"Zajęcia odwołane":       true,
}

const (
	subjectPath = "/Plany/PlanyPrzedmiotow/"
	roomPath    = "/Plany/PlanySal/"
	teacherPath = "/Plany/PlanyProwadzacych/"
	groupPath   = "/Plany/PlanyGrup/"
	trackPath   = "/Plany/PlanyTokow/"
)

func findScheduleTable(doc *goquery.Document) *goquery.Selection {
	for _, selector := range []string{
		"table#gridViewPlanyGrup_DXMainTable",
		"table#gridViewPlanyProwadzacych_DXMainTable",
		`table[id*="_DXMainTable"]`,
	} {
		tbl := doc.Find(selector).First()
		if tbl.Length() > 0 {
			return tbl
		}
	}
	return nil
}

// ParseSchedule returns every usable event of a timetable page. Rows
// missing essentials are skipped, a page without a recognizable grid
// yields an empty slice; only unparsable markup is an error.
func (Parser) ParseSchedule(ctx context.Context, raw string) ([]ScheduleEvent, error) {
	ctx, span := tracer.Start(ctx, "ParseSchedule")
	defer span.End()

	unwrapped := unwrapDXHTML(raw)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(unwrapped))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse html")
		return nil, fmt.Errorf("parse html: %w", err)
	}

	tbl := findScheduleTable(doc)
	if tbl == nil {
		slog.DebugContext(ctx, "no schedule table in document")
		return []ScheduleEvent{}, nil
	}

	var events []ScheduleEvent
	var headerDate string

	tbl.Find("tr.dxgvGroupRow_iOS, tr.dxgvDataRow_iOS").Each(func(_ int, tr *goquery.Selection) {
		class, _ := tr.Attr("class")

		if strings.Contains(class, "dxgvGroupRow") {
			headerDate = htmlutil.CleanText(tr)
			return
		}

		cells := rowCells(tr)
		if len(cells) == 0 {
			return
		}

		ev, ok := parseDataRow(ctx, cells, headerDate)
		if !ok {
			return
		}
		events = append(events, ev)
	})

	span.SetAttributes(attribute.Int("event_count", len(events)))
	return events, nil
}

// cell is one <td> with its normalized text and the href of its first
// anchor, precomputed so field rules stay cheap.
type cell struct {
	sel  *goquery.Selection
	text string
	href string
}

func rowCells(tr *goquery.Selection) []cell {
	var cells []cell
	tr.ChildrenFiltered("td").Each(func(_ int, td *goquery.Selection) {
		cells = append(cells, cell{
			sel:  td,
			text: htmlutil.CleanText(td),
			href: htmlutil.FirstHref(td),
		})
	})
	return cells
}

func parseDataRow(ctx context.Context, cells []cell, headerDate string) (ScheduleEvent, bool) {
	times := findTimes(cells)
	subject := findLinkedText(cells, subjectPath)

	if headerDate == "" || len(times) < 2 || subject == "" {
		slog.DebugContext(ctx, "skipping row, missing essentials",
			"header", headerDate, "times", len(times), "subject", subject)
		return ScheduleEvent{}, false
	}

	startISO, endISO, err := eventISO(headerDate, times[0], times[1])
	if err != nil {
		slog.DebugContext(ctx, "skipping row, bad date/time",
			"header", headerDate, "err", err)
		return ScheduleEvent{}, false
	}

	teacher := findTeacher(cells)

	return ScheduleEvent{
		Title:        subject,
		TeacherName:  teacher.name,
		TeacherId:    teacher.id,
		TeacherEmail: teacher.email,
		Room:         findLinkedText(cells, roomPath),
		Type:         findType(cells),
		Grading:      findGrading(cells),
		StudyTrack:   findLinkedText(cells, trackPath),
		Groups:       findGroups(cells),
		Remarks:      findRemarks(cells),
		StartISO:     startISO,
		EndISO:       endISO,
	}, true
}

// findTimes collects time tokens from every cell in row order; the
// first two are the event's start and end. Times are never tied to a
// particular column.
func findTimes(cells []cell) []string {
	var tokens []string
	for _, c := range cells {
		tokens = append(tokens, timeTokens(c.text)...)
	}
	return tokens
}

func findLinkedText(cells []cell, path string) string {
	for _, c := range cells {
		if strings.Contains(c.href, path) {
			return c.text
		}
	}
	return ""
}

type teacherRef struct {
	name  string
	id    int
	email string
}

func findTeacher(cells []cell) teacherRef {
	for _, c := range cells {
		if !strings.Contains(c.href, teacherPath) {
			continue
		}
		return teacherRef{
			name:  c.text,
			id:    teacherIdFromHref(c.href),
			email: teacherEmailFromCell(c.sel),
		}
	}
	return teacherRef{}
}

// the numeric id is the trailing path segment of the teacher link,
// query string excluded
func teacherIdFromHref(href string) int {
	segments := strings.Split(href, "/")
	last := segments[len(segments)-1]
	last, _, _ = strings.Cut(last, "?")
	id, err := strconv.Atoi(last)
	if err != nil {
		return 0
	}
	return id
}

func teacherEmailFromCell(td *goquery.Selection) string {
	cf := td.Find("a.__cf_email__").First()
	if cf.Length() > 0 {
		return emailFromSelection(cf)
	}
	mailto := td.Find(`a[href^="mailto:"]`).First()
	if mailto.Length() > 0 {
		href, _ := mailto.Attr("href")
		return strings.TrimPrefix(href, "mailto:")
	}
	return ""
}

// group tags usually link to the group plan, but some rows only carry
// the bare semester token
func findGroups(cells []cell) string {
	if linked := findLinkedText(cells, groupPath); linked != "" {
		return linked
	}
	for _, c := range cells {
		if strings.Contains(c.text, "sem") && c.text != "" {
			return c.text
		}
	}
	return ""
}

func findType(cells []cell) string {
	for _, c := range cells {
		if lessonTypes[c.text] {
			return c.text
		}
	}
	return ""
}

func findGrading(cells []cell) string {
	for _, c := range cells {
		for _, keyword := range gradingKeywords {
			if strings.Contains(c.text, keyword) {
				return c.text
			}
		}
	}
	return ""
}

func findRemarks(cells []cell) string {
	for _, c := range cells {
		if c.href != "" {
			continue
		}
		if remarkPhrases[c.text] || strings.HasPrefix(c.text, "Uwagi:") {
			return c.text
		}
	}
	return ""
}

var teacherNameSelectors = []string{"h1", "h2", ".teacher-name", ".nazwisko", ".imie-nazwisko"}
var teacherTitleSelectors = []string{".teacher-title", ".tytul", ".stopien", ".stopien-naukowy"}
var teacherDeptSelectors = []string{".teacher-dept", ".katedra", ".wydzial", ".jednostka"}
var teacherAboutSelectors = []string{".teacher-bio", ".opis", ".content", ".article", ".panel-body"}

// ParseTeacherInfo scrapes a teacher's profile page. The page layout
// differs between faculties, so every field tries a list of candidate
// selectors and keeps the first non-empty match.
func (Parser) ParseTeacherInfo(ctx context.Context, raw string, teacherId int) (TeacherInfo, error) {
	ctx, span := tracer.Start(ctx, "ParseTeacherInfo")
	defer span.End()
	span.SetAttributes(attribute.Int("teacher_id", teacherId))

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse html")
		return TeacherInfo{}, fmt.Errorf("parse html: %w", err)
	}

	info := TeacherInfo{
		Name:       firstText(doc, teacherNameSelectors),
		Title:      firstText(doc, teacherTitleSelectors),
		Department: firstText(doc, teacherDeptSelectors),
		Email:      profileEmail(doc),
		AboutHTML:  firstOuterHtml(doc, teacherAboutSelectors),
	}

	phone := doc.Find(`a[href^="tel"]`).First()
	if phone.Length() > 0 {
		info.Phone = htmlutil.CleanText(phone)
	}

	slog.DebugContext(ctx, "parsed teacher profile",
		"teacher_id", teacherId,
		"name", info.Name,
		"has_email", info.Email != "",
	)
	return info, nil
}

func firstText(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		text := htmlutil.CleanText(doc.Find(selector).First())
		if text != "" {
			return text
		}
	}
	return ""
}

func firstOuterHtml(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		html, err := goquery.OuterHtml(sel)
		if err != nil || strings.TrimSpace(html) == "" {
			continue
		}
		return html
	}
	return ""
}

func profileEmail(doc *goquery.Document) string {
	cf := doc.Find("a.__cf_email__").First()
	if cf.Length() > 0 {
		if email := emailFromSelection(cf); email != "" {
			return email
		}
	}
	protected := doc.Find(`a[href*="/cdn-cgi/l/email-protection"]`).First()
	if protected.Length() > 0 {
		if email := emailFromSelection(protected); email != "" {
			return email
		}
	}
	mailto := doc.Find(`a[href^="mailto:"]`).First()
	if mailto.Length() > 0 {
		href, _ := mailto.Attr("href")
		return strings.TrimPrefix(href, "mailto:")
	}
	return ""
}
