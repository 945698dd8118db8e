package dsw

import (
	"context"
	"errors"
	"fmt"
	"net/http/cookiejar"
	"strconv"
	"time"

	"dswagg-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

// ErrUpstreamUnavailable marks a non-success status or transport
// failure from the timetable site. Callers decide whether that is
// fatal or degrades the response.
var ErrUpstreamUnavailable = errors.New("timetable site unavailable")

const defaultBaseUrl = "https://harmonogramy.dsw.edu.pl"

// constant window state taken from a real browser callback request;
// the grid endpoint rejects requests without it
const custWindowStateJSON = `{"windowsState":"0:0:-1:0:0:0:-10000:-10000:1:0:0:0"}`

// Client scrapes the university timetable site. The site sits behind
// Cloudflare, hence the bypass transport.
type Client struct {
	http    *resty.Client
	baseUrl string
}

type ClientOptions struct {
	// defaults to the production site when empty
	BaseUrl string
}

func NewClient(opts ClientOptions) *Client {
	baseUrl := opts.BaseUrl
	if baseUrl == "" {
		baseUrl = defaultBaseUrl
	}

	client := resty.New()
	client.SetBaseURL(baseUrl)
	jar, err := cookiejar.New(nil)
	if err == nil {
		client.SetCookieJar(jar)
	}
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetHeader("Accept", "text/html, */*; q=0.01")
	client.SetTimeout(time.Second * 30)

	telemetry.InstrumentResty(client, "scrapers/dsw/http")

	return &Client{
		http:    client,
		baseUrl: baseUrl,
	}
}

func (c *Client) postForm(ctx context.Context, path string, fields map[string]string) (string, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8").
		SetFormData(fields).
		Post(path)
	if err != nil {
		return "", fmt.Errorf("POST %s: %w: %w", path, ErrUpstreamUnavailable, err)
	}
	if res.StatusCode() != 200 {
		return "", fmt.Errorf("POST %s -> %d: %w", path, res.StatusCode(), ErrUpstreamUnavailable)
	}
	return string(res.Body()), nil
}

// GroupScheduleHTML fetches the grid for one group through the
// DevExpress callback endpoint.
func (c *Client) GroupScheduleHTML(ctx context.Context, groupId int, from, to string, interval IntervalType) (string, error) {
	return c.postForm(ctx, fmt.Sprintf("/Plany/PlanyGrupGridCustom/%d", groupId), map[string]string{
		"DXCallbackName":                    "gridViewPlanyGrup",
		"gridViewPlanyGrup$custwindowState": custWindowStateJSON,
		"DXMVCEditorsValues":                "{}",
		"parametry":                         fmt.Sprintf("%s;%s;%d;%d", from, to, interval, groupId),
		"id":                                strconv.Itoa(groupId),
	})
}

func (c *Client) TeacherScheduleHTML(ctx context.Context, teacherId int, from, to string, interval IntervalType) (string, error) {
	return c.postForm(ctx, fmt.Sprintf("/Plany/PlanyProwadzacychGridCustom/%d", teacherId), map[string]string{
		"DXCallbackName":                            "gridViewPlanyProwadzacych",
		"gridViewPlanyProwadzacych$custwindowState": custWindowStateJSON,
		"DXMVCEditorsValues":                        "{}",
		"parametry":                                 fmt.Sprintf("%s;%s;%d;%d", from, to, interval, teacherId),
		"id":                                        strconv.Itoa(teacherId),
	})
}

func (c *Client) TeacherInfoHTML(ctx context.Context, teacherId int) (string, error) {
	path := fmt.Sprintf("/Plany/OpisProwadzacego/%d", teacherId)
	res, err := c.http.R().
		SetContext(ctx).
		Get(path)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w: %w", path, ErrUpstreamUnavailable, err)
	}
	if res.StatusCode() != 200 {
		return "", fmt.Errorf("GET %s -> %d: %w", path, res.StatusCode(), ErrUpstreamUnavailable)
	}
	return string(res.Body()), nil
}

// SearchGroupsHTML fetches the search results page for a group name
// query.
func (c *Client) SearchGroupsHTML(ctx context.Context, query string) (string, error) {
	return c.postForm(ctx, "/Plany/ZnajdzGrupe", map[string]string{
		"nazwaGrupy": query,
	})
}
