// Package server serves the local monitor: a status page, a JSON state
// API and the frame WebSocket.
package server

import (
	"context"
	_ "embed"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"

	"github.com/soar/dianach/internal/calibration"
	"github.com/soar/dianach/internal/hub"
	"github.com/soar/dianach/internal/yoke"
)

//go:embed static/index.html
var indexHTML []byte

// AxisInfo describes one calibration for the API.
type AxisInfo struct {
	Min      float64 `json:"min"`
	Centre   float64 `json:"centre"`
	Max      float64 `json:"max"`
	DeadZone float64 `json:"deadZone"`
	A        float64 `json:"a"`
	B        float64 `json:"b"`
	C        float64 `json:"c"`
}

// YokeSource supplies the latest raw yoke state.
type YokeSource interface {
	CurrentState() yoke.State
}

type Server struct {
	hub         *hub.Hub
	broadcaster *hub.Broadcaster
	yoke        YokeSource
	axes        map[yoke.Axis]AxisInfo
	page        []byte
	addr        string
	httpServer  *http.Server
}

func New(h *hub.Hub, b *hub.Broadcaster, ys YokeSource, cal map[yoke.Axis]*calibration.Axis, addr string) (*Server, error) {
	page, err := minifyPage(indexHTML)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to minify monitor page")
	}

	axes := make(map[yoke.Axis]AxisInfo, len(cal))
	for name, x := range cal {
		a, bb, c := x.Coefficients()
		p := x.Points()
		axes[name] = AxisInfo{
			Min:      p.Min,
			Centre:   p.Centre,
			Max:      p.Max,
			DeadZone: x.DeadZone(),
			A:        a,
			B:        bb,
			C:        c,
		}
	}

	s := &Server{
		hub:         h,
		broadcaster: b,
		yoke:        ys,
		axes:        axes,
		page:        page,
		addr:        addr,
	}
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	return s, nil
}

func minifyPage(page []byte) ([]byte, error) {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	m.AddFuncRegexp(regexp.MustCompile("^(application|text)/(x-)?(java|ecma)script$"), js.Minify)
	return m.Bytes("text/html", page)
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))

	router.GET("/", s.getIndex)
	router.GET("/api/state", s.getState)
	router.GET("/api/calibration", s.getCalibration)
	router.GET("/api/yoke", s.getYoke)
	router.GET("/ws", s.handleWebSocket(s.hub.Upgrader()))

	return router
}

func (s *Server) ListenAndServe() error {
	logrus.WithField("addr", s.addr).Info("monitor listening")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	logrus.Info("shutting down monitor")
	return s.httpServer.Shutdown(ctx)
}
