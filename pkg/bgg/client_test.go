package bgg

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	pkgerrors "github.com/DanielHemmis/BggCollections/pkg/errors"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func respond(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

func newTestClient(rt roundTripFunc, opts ...Option) *Client {
	base := []Option{
		WithHTTPClient(&http.Client{Transport: rt}),
		WithBaseURL("http://bgg.test/xmlapi2/"),
		WithRetry(3, time.Millisecond),
	}
	return NewClient(append(base, opts...)...)
}

const collectionBody = `<?xml version="1.0" encoding="utf-8" standalone="yes"?>
<items totalitems="3" termsofuse="https://boardgamegeek.com/xmlapi/termsofuse">
	<item objecttype="thing" objectid="10" subtype="boardgame" collid="1">
		<name sortindex="1">Brass</name>
		<status own="1" prevowned="0" fortrade="0" want="0" wishlist="0"/>
		<numplays>5</numplays>
	</item>
	<item objecttype="thing" objectid="11" subtype="boardgame" collid="2">
		<name sortindex="1">Brass: Iron Clays</name>
		<status own="1" prevowned="0"/>
		<numplays>0</numplays>
	</item>
	<item objecttype="thing" objectid="12" subtype="boardgame" collid="3">
		<name sortindex="1">Wishlisted</name>
		<status own="0" wishlist="1"/>
		<numplays>0</numplays>
	</item>
</items>`

const thingsBody = `<?xml version="1.0" encoding="utf-8"?>
<items termsofuse="https://boardgamegeek.com/xmlapi/termsofuse">
	<item type="boardgame" id="10">
		<thumbnail>https://cf.geekdo-images.com/brass.jpg</thumbnail>
		<name type="alternate" sortindex="1" value="Brass (alt)"/>
		<name type="primary" sortindex="1" value="Brass"/>
		<minplayers value="2"/>
		<maxplayers value="4"/>
		<playingtime value="120"/>
		<link type="boardgameexpansion" id="11" value="Brass: Iron Clays"/>
		<statistics page="1">
			<ratings>
				<average value="8.61"/>
				<averageweight value="3.87"/>
				<ranks>
					<rank type="family" id="5497" name="strategygames" value="3"/>
					<rank type="subtype" id="1" name="boardgame" value="1"/>
				</ranks>
			</ratings>
		</statistics>
	</item>
	<item type="boardgameexpansion" id="11">
		<name type="primary" sortindex="1" value="Brass: Iron Clays"/>
		<minplayers value="2"/>
		<maxplayers value="4"/>
		<playingtime value="120"/>
		<link type="boardgamemechanic" id="2040" value="Hand Management"/>
		<link type="boardgameexpansion" id="10" value="Brass" inbound="true"/>
		<statistics page="1">
			<ratings>
				<average value="7.9"/>
				<averageweight value="0"/>
				<ranks>
					<rank type="subtype" id="1" name="boardgame" value="Not Ranked"/>
				</ranks>
			</ratings>
		</statistics>
	</item>
</items>`

func TestCollectionRequestAndOwnedFilter(t *testing.T) {
	var capturedURL string
	var capturedHeaders http.Header
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedHeaders = req.Header.Clone()
		return respond(http.StatusOK, collectionBody), nil
	}, WithToken("secret"))

	items, err := client.Collection(context.Background(), "  alice ")
	if err != nil {
		t.Fatalf("Collection returned error: %v", err)
	}
	if want := "http://bgg.test/xmlapi2/collection?own=1&stats=1&username=alice"; capturedURL != want {
		t.Fatalf("unexpected url %q, want %q", capturedURL, want)
	}
	if got := capturedHeaders.Get("Authorization"); got != "Bearer secret" {
		t.Fatalf("unexpected authorization header %q", got)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 owned items, got %d", len(items))
	}
	if items[0].ObjectID != 10 || items[0].NumPlays != 5 || items[0].Name != "Brass" {
		t.Fatalf("unexpected first item %+v", items[0])
	}
	if items[1].ObjectID != 11 || items[1].NumPlays != 0 {
		t.Fatalf("unexpected second item %+v", items[1])
	}
}

func TestCollectionRetriesWhileQueued(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		if calls.Add(1) < 3 {
			return respond(http.StatusAccepted, "<message>Your request has been accepted and will be processed.</message>"), nil
		}
		return respond(http.StatusOK, collectionBody), nil
	})

	items, err := client.Collection(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Collection returned error: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
}

func TestCollectionGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		calls.Add(1)
		return respond(http.StatusServiceUnavailable, "down"), nil
	})

	_, err := client.Collection(context.Background(), "alice")
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeDependency {
		t.Fatalf("unexpected code %s", code)
	}
}

func TestCollectionQueuedTooLongIsTimeout(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return respond(http.StatusAccepted, ""), nil
	}, WithRetry(2, time.Millisecond))

	_, err := client.Collection(context.Background(), "alice")
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeTimeout {
		t.Fatalf("expected timeout code, got %s (%v)", code, err)
	}
}

func TestCollectionUnknownUser(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		calls.Add(1)
		return respond(http.StatusOK, `<?xml version="1.0" encoding="utf-8"?><errors><error><message>Invalid username specified</message></error></errors>`), nil
	})

	_, err := client.Collection(context.Background(), "nobody")
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %s (%v)", code, err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestClientErrorStatusIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		calls.Add(1)
		return respond(http.StatusBadRequest, "bad"), nil
	})

	if _, err := client.Things(context.Background(), []int64{1}); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestCollectionRequiresUsername(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		t.Fatal("no request expected")
		return nil, nil
	})
	_, err := client.Collection(context.Background(), "   ")
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %s", code)
	}
}

func TestThingsParsesMetadata(t *testing.T) {
	var capturedURL string
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		return respond(http.StatusOK, thingsBody), nil
	})

	things, err := client.Things(context.Background(), []int64{10, 11})
	if err != nil {
		t.Fatalf("Things returned error: %v", err)
	}
	if want := "http://bgg.test/xmlapi2/thing?id=10%2C11&stats=1"; capturedURL != want {
		t.Fatalf("unexpected url %q, want %q", capturedURL, want)
	}
	if len(things) != 2 {
		t.Fatalf("expected 2 things, got %d", len(things))
	}

	base := things[0]
	if base.ID != 10 || base.Name != "Brass" || base.Thumbnail == "" {
		t.Fatalf("unexpected base %+v", base)
	}
	if base.MinPlayers != 2 || base.MaxPlayers != 4 || base.PlayingTime != 120 {
		t.Fatalf("unexpected player data %+v", base)
	}
	if base.Rank == nil || *base.Rank != 1 {
		t.Fatalf("expected boardgame rank 1, got %v", base.Rank)
	}
	if base.RatingAverage == nil || *base.RatingAverage != 8.61 {
		t.Fatalf("unexpected rating %v", base.RatingAverage)
	}
	if base.Expands != nil {
		t.Fatalf("base should not expand anything, got %d", *base.Expands)
	}

	exp := things[1]
	if exp.Expands == nil || *exp.Expands != 10 {
		t.Fatalf("expected expansion of 10, got %v", exp.Expands)
	}
	if exp.Rank != nil {
		t.Fatalf("expected nil rank for Not Ranked, got %v", *exp.Rank)
	}
	if exp.AverageWeight == nil || *exp.AverageWeight != 0 {
		t.Fatalf("expected raw zero weight, got %v", exp.AverageWeight)
	}
}

func TestThingsRejectsOversizedBatch(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		t.Fatal("no request expected")
		return nil, nil
	})
	ids := make([]int64, MaxThingIDsPerRequest+1)
	if _, err := client.Things(context.Background(), ids); err == nil {
		t.Fatal("expected error")
	}
	things, err := client.Things(context.Background(), nil)
	if err != nil || things != nil {
		t.Fatalf("expected empty result, got %v %v", things, err)
	}
}

func TestRequestHonorsCanceledContext(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return nil, req.Context().Err()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.Things(ctx, []int64{1}); err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestNotFoundStatusIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		calls.Add(1)
		return respond(http.StatusNotFound, "missing"), nil
	})

	_, err := client.Collection(context.Background(), "alice")
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %s", code)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}
