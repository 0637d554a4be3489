package ws

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Tk21111/sketchroom/internal/logx"
	"github.com/Tk21111/sketchroom/middleware"
	"github.com/Tk21111/sketchroom/session"
)

// HandleWS serves GET /ws?roomId=..&name=..&codec=json|cbor.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	roomId := q.Get("roomId")
	name := q.Get("name")

	if roomId == "" {
		http.Error(w, "missing roomId", http.StatusBadRequest)
		return
	}

	codec, err := middleware.CodecFor(q.Get("codec"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logx.From(r.Context()).Warn("upgrade", zap.Error(err))
		return
	}

	p := h.store.Create(roomId, name)
	p, _ = h.store.Update(p.ID, func(p *session.Participant) {
		if p.Name == "" {
			p.Name = middleware.GuestName(p.ID)
		}
		p.Color = middleware.ColorFromUserID(p.ID)
	})

	ctx := logx.Participant(r.Context(), p.Room, p.ID)
	client := newClient(h, conn, codec, p, logx.From(ctx).Named("client"))
	h.Join(client)

	go client.write()
	client.read()
}
