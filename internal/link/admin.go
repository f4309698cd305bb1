package link

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"

	"tailscale.com/tsweb"
)

// relay is what the admin pages need from a Mux or a Client.
type relay interface {
	Subscribe() (string, chan string)
	Unsubscribe(string)
	SendCommand(string) error
}

var sendCommandTemplate = template.Must(template.New("send-command").Parse(`<!doctype html>
<html>
<head><title>gridbot link</title></head>
<body>
<h1>Controller link</h1>
<form id="send" method="post" action="send-command-api">
  <input name="command" placeholder="AW3|D|" autofocus>
  <button type="submit">Send</button>
</form>
<pre id="tail"></pre>
<script>
const tail = document.getElementById("tail");
new EventSource("tail").onmessage = (e) => { tail.textContent += e.data + "\n"; };
document.getElementById("send").onsubmit = async (e) => {
  e.preventDefault();
  await fetch("send-command-api", { method: "POST", body: new FormData(e.target) });
  e.target.reset();
};
</script>
</body>
</html>
`))

func attachAdminRoutes(mux *http.ServeMux, r relay) {
	debug := tsweb.Debugger(mux)

	debug.HandleFunc("send-command", "send a line to the controller link", func(w http.ResponseWriter, req *http.Request) {
		buf := bytes.NewBuffer(nil)
		if err := sendCommandTemplate.Execute(buf, nil); err != nil {
			http.Error(w, "Failed to render template", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.Copy(w, buf)
	})

	debug.HandleSilentFunc("send-command-api", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		command := strings.TrimSpace(req.FormValue("command"))
		if command == "" {
			http.Error(w, "Missing command", http.StatusBadRequest)
			return
		}
		if err := r.SendCommand(command); err != nil {
			http.Error(w, "Failed to write command", http.StatusInternalServerError)
			return
		}
		io.WriteString(w, fmt.Sprintf("Wrote command %q to link", command))
	})

	// Server-sent events for every line read from the link.
	debug.HandleSilentFunc("tail", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		id, c := r.Subscribe()
		defer r.Unsubscribe(id)

		w.Write([]byte(": ping\n\n"))
		flusher.Flush()

		for {
			select {
			case payload, ok := <-c:
				if !ok {
					return
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
					return
				}
				flusher.Flush()
			case <-req.Context().Done():
				return
			}
		}
	})
}
