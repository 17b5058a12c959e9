package web

import (
	"context"
	"io"

	"escape-rose/internal/enigma"

	"github.com/a-h/templ"
)

const siteTitle = "Plante Rose"

// Page renders the full document for data.Path.
func Page(data PageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		title, body := content(data.Path)
		h.raw(`<!doctype html>
<html lang="fr">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>`)
		h.text(title + " · " + siteTitle)
		h.raw(`</title>
    <link rel="stylesheet" href="`, attr(assetPath("/static/styles.css")), `"/>
  </head>
  <body data-path="`, attr(data.Path), `" data-room="`, attr(data.RoomID), `" data-status="`, attr(data.Status), `">
`)
		if data.InRoom() && data.Status != "" && data.Path != "/" {
			header(h, data)
		}
		h.raw(`    <main class="shell">
`)
		if data.Flash != "" {
			h.raw(`      <p class="flash">`)
			h.text(data.Flash)
			h.raw("</p>\n")
		}
		body(h, data)
		h.raw("    </main>\n")
		if data.InRoom() && data.Path != "/" {
			chat(h, data)
		}
		h.raw(`    <script>`, clientScript, `</script>
  </body>
</html>
`)
		return h.err
	})
}

func header(h *html, data PageData) {
	h.raw(`    <header class="game-header">
      <ol class="progress">
`)
	for i, label := range enigma.Steps {
		class := "todo"
		switch {
		case i < data.Step:
			class = "done"
		case i == data.Step:
			class = "current"
		}
		h.raw(`        <li class="`, class, `"><span>`, itoa(i+1), `</span> `)
		h.text(label)
		h.raw("</li>\n")
	}
	h.raw(`      </ol>
      <div class="timer" data-started-at="`, attr(int64String(data.StartedAt)), `">`)
	h.text(data.Elapsed)
	h.raw(`</div>
      <div class="me" style="color:`, attr(data.PlayerColor), `">`)
	h.text(data.PlayerName)
	if data.Team != "" {
		h.raw(` <small>(`)
		h.text(data.Team)
		h.raw(`)</small>`)
	}
	h.raw(`</div>
    </header>
`)
}

func chat(h *html, data PageData) {
	h.raw(`    <aside class="chat" id="chat">
      <h2>Chat</h2>
      <ul id="chatMessages">
`)
	for _, msg := range data.Messages {
		chatLine(h, msg)
	}
	h.raw(`      </ul>
      <form id="chatForm">
        <input name="message" maxlength="500" placeholder="Votre message..." autocomplete="off" required/>
        <button type="submit">Envoyer</button>
      </form>
    </aside>
`)
}

func chatLine(h *html, msg ChatItem) {
	h.raw(`        <li><strong style="color:`, attr(msg.Color), `">`)
	h.text(msg.Name)
	h.raw(`</strong> <time>`)
	h.text(msg.Time)
	h.raw(`</time> `)
	h.text(msg.Message)
	h.raw("</li>\n")
}

func playerList(h *html, players []PlayerItem) {
	h.raw("      <ul class=\"players\" id=\"players\">\n")
	for _, p := range players {
		h.raw(`        <li><span class="avatar" style="background:`, attr(p.Color), `">`)
		h.text(p.Avatar)
		h.raw(`</span> `)
		h.text(p.Name)
		if p.IsHost {
			h.raw(` <em>hôte</em>`)
		}
		if p.IsYou {
			h.raw(` <em>vous</em>`)
		}
		if p.Team != "" {
			h.raw(` <small>`)
			h.text(p.Team)
			h.raw(`</small>`)
		}
		h.raw("</li>\n")
	}
	h.raw("      </ul>\n")
}

func int64String(value int64) string {
	if value == 0 {
		return ""
	}
	return itoaInt64(value)
}
