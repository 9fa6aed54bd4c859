package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MiradoConsulting/RobocodeEngine/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type recordingNotifier struct {
	subjects []string
	err      error
}

func (r *recordingNotifier) Notify(_ context.Context, subject, _ string) error {
	r.subjects = append(r.subjects, subject)
	return r.err
}

func TestWebhookNotifier(t *testing.T) {
	Convey("Given a webhook endpoint", t, func() {
		var got webhookPayload
		status := http.StatusOK
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&got)
			w.WriteHeader(status)
		}))
		defer srv.Close()

		n := NewWebhookNotifier(srv.URL, nil)

		Convey("When a notice is sent", func() {
			err := n.Notify(context.Background(), "Robot alpha didn't compile", "error: ';' expected")

			Convey("Then the endpoint receives subject and body as text", func() {
				So(err, ShouldBeNil)
				So(got.Text, ShouldEqual, "Robot alpha didn't compile\nerror: ';' expected")
			})
		})

		Convey("When the endpoint rejects the notice", func() {
			status = http.StatusInternalServerError
			err := n.Notify(context.Background(), "s", "b")

			Convey("Then a webhook error is returned", func() {
				So(errors.Is(err, ErrWebhook), ShouldBeTrue)
			})
		})
	})
}

func TestMulti(t *testing.T) {
	Convey("Given several notifiers, one failing", t, func() {
		So(logger.Init(), ShouldBeNil)
		ok := &recordingNotifier{}
		bad := &recordingNotifier{err: errors.New("down")}
		m := Multi{NewLogNotifier(nil), ok, nil, bad}

		err := m.Notify(context.Background(), "subject", "body")

		Convey("Then every notifier is tried and the failure is reported", func() {
			So(ok.subjects, ShouldResemble, []string{"subject"})
			So(bad.subjects, ShouldResemble, []string{"subject"})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "down")
		})
	})
}
