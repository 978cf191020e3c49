package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/elonfeng/hotboard/pkg/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, status int, body string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const baiduHTML = `<html><body>
<div class="category-wrap_iQLoo">
  <a class="img-wrapper_29V76" href="https://www.baidu.com/s?wd=a"><img src="//img.example/a.png"></a>
  <div class="index_1Ew5p">1</div>
  <div class="c-single-text-ellipsis"> First topic </div>
  <div class="hot-desc_1m_jR">Something happened 查看更多></div>
  <div class="hot-index_1Bl1a">7904613</div>
</div>
<div class="category-wrap_iQLoo">
  <a href="/s?wd=b"></a>
  <div class="c-single-text-ellipsis">Second topic</div>
  <div class="hot-index_1Bl1a">12.5万</div>
</div>
</body></html>`

func TestBaiduFetch(t *testing.T) {
	srv := serve(t, http.StatusOK, baiduHTML, func(r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
	})

	items, err := NewBaidu(srv.URL, time.Second).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, "First topic", first["title"])
	assert.Equal(t, "https://www.baidu.com/s?wd=a", first["url"])
	assert.Equal(t, "https://img.example/a.png", first["image_url"])
	assert.Equal(t, "Something happened", first["excerpt"])
	assert.Equal(t, "7904613", first["heat_text"])
	assert.EqualValues(t, 7904613, first["heat_value"])
	assert.Equal(t, 1, first["rank"])

	second := items[1]
	assert.Equal(t, "https://www.baidu.com/s?wd=b", second["url"])
	assert.Equal(t, 2, second["rank"], "rank falls back to position")
	assert.EqualValues(t, 125000, second["heat_value"])
	_, hasImage := second["image_url"]
	assert.False(t, hasImage)
}

func TestWeiboFetch(t *testing.T) {
	body := `{"ok":1,"data":{"realtime":[
		{"note":"话题一","word":"话题一","word_scheme":"#话题一#","num":1234567,"rank":0,"label_name":"热"},
		{"note":"广告","word_scheme":"#广告#","num":1,"is_ad":1},
		{"note":"topic two","word_scheme":"%23already%23","num":"23.5万","rank":1}
	]}}`
	srv := serve(t, http.StatusOK, body, func(r *http.Request) {
		assert.Equal(t, "tok123", r.Header.Get("X-XSRF-TOKEN"))
		assert.Contains(t, r.Header.Get("Cookie"), "SUB=abc")
	})

	items, err := NewWeibo(srv.URL, "SUB=abc; XSRF-TOKEN=tok123", time.Second).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "话题一", items[0]["title"])
	assert.Equal(t, "https://s.weibo.com/weibo?q=%23%E8%AF%9D%E9%A2%98%E4%B8%80%23&t=31", items[0]["url"])
	assert.Equal(t, "1234567", items[0]["heat_text"])
	assert.EqualValues(t, 1234567, items[0]["heat_value"])
	assert.Equal(t, 1, items[0]["rank"])
	assert.Equal(t, []string{"热"}, items[0]["labels"])

	assert.Equal(t, "https://s.weibo.com/weibo?q=%23already%23&t=31", items[1]["url"])
	assert.EqualValues(t, 235000, items[1]["heat_value"])
	assert.Equal(t, 2, items[1]["rank"])

	rec, ok := normalize.Normalize("weibo", items[0], PolicyFor(PlatformWeibo), time.Now())
	require.True(t, ok)
	assert.Equal(t, "#话题一#", *rec.TopicKey)
	assert.Equal(t, "热", *rec.TagsText)
}

func TestWeiboForbidden(t *testing.T) {
	srv := serve(t, http.StatusForbidden, "", nil)
	_, err := NewWeibo(srv.URL, "SUB=abc", time.Second).Fetch(context.Background())
	require.ErrorIs(t, err, ErrForbidden)

	_, err = NewWeibo(srv.URL, "  ", time.Second).Fetch(context.Background())
	require.ErrorIs(t, err, ErrForbidden)
}

func TestDouyinFetchSortsByHeat(t *testing.T) {
	body := `{"data":{"word_list":[
		{"word":"low","sentence_id":"111","hot_value":100},
		{"word":"no id","hot_value":999999},
		{"word":"high word","sentence_id":2222222222,"hot_value":11953247,"word_cover":{"url_list":["https://p.example/c.jpg"]}}
	]}}`
	srv := serve(t, http.StatusOK, body, func(r *http.Request) {
		assert.Equal(t, "https://www.douyin.com/hot", r.Header.Get("Referer"))
	})

	items, err := NewDouyin(srv.URL, "", "", time.Second).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "high word", items[0]["title"])
	assert.Equal(t, "2222222222", items[0]["sentence_id"])
	assert.Equal(t, "https://www.douyin.com/hot/2222222222/high%20word", items[0]["url"])
	assert.Equal(t, "https://p.example/c.jpg", items[0]["image_url"])
	assert.Equal(t, 1, items[0]["rank"])
	assert.Equal(t, "low", items[1]["title"])
	assert.Equal(t, 2, items[1]["rank"])

	rec, ok := normalize.Normalize("douyin", items[0], PolicyFor(PlatformDouyin), time.Now())
	require.True(t, ok)
	assert.EqualValues(t, 11953247, *rec.HeatValue)
	assert.Equal(t, "2222222222", *rec.TopicKey)
}

func TestZhihuFallsBackToSecondEndpoint(t *testing.T) {
	broken := serve(t, http.StatusInternalServerError, "", nil)
	body := `{"data":[
		{"target":{"id":101,"title":"Question one","url":"https://api.zhihu.com/questions/101","excerpt":"<b>bold</b> &amp; more","answer_count":12,"follower_count":340},"detail_text":"123 万热度","children":[{"thumbnail":"https://pic.example/t.jpg"}]},
		{"id":202,"title":"Question two","detail_text":"56000 热度"},
		{"target":{"title":""}},
		{"target":{"id":303,"title":"Question three"}}
	]}`
	good := serve(t, http.StatusOK, body, func(r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
	})

	items, err := NewZhihu([]string{broken.URL, good.URL}, 2, time.Second).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "https://www.zhihu.com/question/101", items[0]["url"])
	assert.Equal(t, "bold & more", items[0]["excerpt"])
	assert.Equal(t, "123.00 万", items[0]["heat_text"])
	assert.EqualValues(t, 1230000, items[0]["heat_value"])
	assert.Equal(t, 12, items[0]["answer_count"])
	assert.Equal(t, "https://pic.example/t.jpg", items[0]["image_url"])

	assert.Equal(t, "https://www.zhihu.com/question/202", items[1]["url"])
	assert.Equal(t, "5.60 万", items[1]["heat_text"])
	assert.EqualValues(t, 56000, items[1]["heat_value"])
}

func TestZhihuAllEndpointsFail(t *testing.T) {
	broken := serve(t, http.StatusBadGateway, "", nil)
	_, err := NewZhihu([]string{broken.URL, broken.URL}, 10, time.Second).Fetch(context.Background())
	require.Error(t, err)
}

func TestCailianFetch(t *testing.T) {
	body := `{"error":0,"data":{"roll_data":[
		{"id":1876543,"ctime":1762480800,"title":"央行公告","brief":"<p>简讯</p>","content":"全文","level":"B","reading_num":45678,"comment_num":3,"shareurl":""},
		{"id":1876544,"title":"","brief":"无标题电报","reading_num":10,"shareurl":"https://cls.example/s/1"}
	]}}`
	srv := serve(t, http.StatusOK, body, nil)

	items, err := NewCailian(srv.URL, time.Second).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, "https://api3.cls.cn/share/article/1876543?os=web&app=CailianpressWeb", first["url"])
	assert.Equal(t, "简讯", first["excerpt"])
	assert.Equal(t, "45678", first["heat_text"])

	rec, ok := normalize.Normalize("cailian", first, PolicyFor(PlatformCailian), time.Now())
	require.True(t, ok)
	assert.EqualValues(t, 45678, *rec.HeatValue)

	var extra map[string]any
	require.NoError(t, json.Unmarshal([]byte(*rec.ExtraJSON), &extra))
	assert.EqualValues(t, 1876543, extra["id"])
	assert.EqualValues(t, 1762480800, extra["ctime"])
	assert.Equal(t, "B", extra["level"])
	assert.EqualValues(t, 3, extra["comment_num"])

	_, ok = normalize.Normalize("cailian", items[1], PolicyFor(PlatformCailian), time.Now())
	assert.False(t, ok, "telegraphs without title are dropped")
}

func TestCailianUpstreamError(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"error":1,"data":{}}`, nil)
	_, err := NewCailian(srv.URL, time.Second).Fetch(context.Background())
	require.ErrorIs(t, err, ErrUpstream)
}

const feedXML = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Example</title>
<item><title>Post A</title><link>https://blog.example/a</link><guid>a-1</guid>
<description>&lt;p&gt;Hello &lt;em&gt;world&lt;/em&gt;&lt;/p&gt;</description><category>go</category><category>db</category></item>
<item><title>Post B</title><link>https://blog.example/b</link></item>
</channel></rss>`

func TestRSSFetch(t *testing.T) {
	good := serve(t, http.StatusOK, feedXML, nil)
	broken := serve(t, http.StatusNotFound, "", nil)

	items, err := NewRSS([]RSSFeed{{Name: "broken", URL: broken.URL}, {Name: "blog", URL: good.URL}}, time.Second).
		Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Post A", items[0]["title"])
	assert.Equal(t, "Hello world", items[0]["excerpt"])
	assert.Equal(t, 1, items[0]["rank"])

	rec, ok := normalize.Normalize("rss", items[0], PolicyFor(PlatformRSS), time.Now())
	require.True(t, ok)
	assert.Equal(t, "go|db", *rec.TagsText)
	assert.Equal(t, "a-1", *rec.TopicKey)
	assert.Equal(t, `{"feed_name":"blog"}`, *rec.ExtraJSON)

	_, err = NewRSS([]RSSFeed{{Name: "broken", URL: broken.URL}}, time.Second).Fetch(context.Background())
	require.Error(t, err)
}

func TestFilter(t *testing.T) {
	f := NewFilter([]string{" AD ", ""})
	items := []normalize.Item{
		{"title": "Big ad campaign"},
		{"title": "real news"},
		{"url": "no title"},
	}
	kept := f.Apply(items)
	require.Len(t, kept, 2)
	assert.Equal(t, "real news", kept[0]["title"])

	var nilFilter *Filter
	assert.Len(t, nilFilter.Apply(items), 3)
	assert.False(t, nilFilter.Excluded("ad"))
}

func TestPoliciesCoverPlatforms(t *testing.T) {
	for _, p := range AllPlatforms() {
		_, ok := Policies[p]
		assert.True(t, ok, "platform %s has a routing policy", p)
	}
	assert.Equal(t, "word_scheme", PolicyFor(PlatformWeibo).TopicKeyField)
	assert.Empty(t, PolicyFor(Platform("unknown")).ExtraFields)
}

func TestRawText(t *testing.T) {
	assert.Equal(t, "12345678901", rawText(json.RawMessage(`12345678901`)))
	assert.Equal(t, "abc", rawText(json.RawMessage(`" abc "`)))
	assert.Equal(t, "", rawText(json.RawMessage(`null`)))
	assert.Equal(t, "", rawText(nil))
	assert.True(t, strings.HasPrefix(stamp(), time.Now().Format("2006-01-02")))
}
