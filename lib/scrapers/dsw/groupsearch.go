package dsw

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"dswagg-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ParseGroups reads the group search results grid. A document without
// the grid is an empty result, not an error.
func (Parser) ParseGroups(ctx context.Context, raw string) ([]GroupInfo, error) {
	ctx, span := tracer.Start(ctx, "ParseGroups")
	defer span.End()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse html")
		return nil, fmt.Errorf("parse html: %w", err)
	}

	table := doc.Find(`table[id*="ZnajdzGrupeGrid"]`).First()
	if table.Length() == 0 {
		return []GroupInfo{}, nil
	}

	var result []GroupInfo
	table.Find("tr.dxgvDataRow_iOS").Each(func(_ int, tr *goquery.Selection) {
		tds := tr.ChildrenFiltered("td")
		if tds.Length() < 5 {
			return
		}

		groupAnchor := tds.Eq(1).Find(`a[href*="` + groupPath + `"]`).First()
		groupHref, _ := groupAnchor.Attr("href")

		var tracks []TrackInfo
		tds.Eq(2).Find(`a[href*="` + trackPath + `"]`).Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			tracks = append(tracks, TrackInfo{
				TrackId: idFromTrailingSegment(href),
				Title:   htmlutil.CleanText(a),
			})
		})

		result = append(result, GroupInfo{
			GroupId: idFromTrailingSegment(groupHref),
			Code:    htmlutil.CleanText(tds.Eq(0)),
			Name:    htmlutil.CleanText(groupAnchor),
			Tracks:  tracks,
			Program: htmlutil.CleanText(tds.Eq(3)),
			Faculty: htmlutil.CleanText(tds.Eq(4)),
		})
	})

	span.SetAttributes(attribute.Int("group_count", len(result)))
	return result, nil
}

// search result ids sit in the trailing path segment; -1 marks a row
// whose link did not carry one
func idFromTrailingSegment(href string) int {
	segments := strings.Split(strings.TrimSuffix(href, "/"), "/")
	last := segments[len(segments)-1]
	last, _, _ = strings.Cut(last, "?")
	id, err := strconv.Atoi(last)
	if err != nil {
		return -1
	}
	return id
}
