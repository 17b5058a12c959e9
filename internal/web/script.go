package web

// clientScript wires the page forms to the JSON API and keeps the player
// list and chat live over /ws. Status changes reload the page so the
// server-side gate picks the right route.
const clientScript = `
(function () {
  const body = document.body;
  const roomID = body.dataset.room;
  let status = body.dataset.status;

  async function post(path, payload) {
    const res = await fetch(path, {
      method: "POST",
      headers: { "Content-Type": "application/json" },
      body: JSON.stringify(payload || {})
    });
    let data = {};
    try { data = await res.json(); } catch (e) {}
    return { ok: res.ok, data: data };
  }

  function escapeHTML(value) {
    const div = document.createElement("div");
    div.textContent = value == null ? "" : String(value);
    return div.innerHTML;
  }

  const homeForm = document.getElementById("homeForm");
  if (homeForm) {
    homeForm.addEventListener("submit", async (event) => {
      event.preventDefault();
      const result = document.getElementById("homeResult");
      const action = event.submitter ? event.submitter.value : "create";
      const name = homeForm.elements.name.value.trim();
      const code = homeForm.elements.code.value.trim();
      const res = action === "join"
        ? await post("/api/rooms/join", { code: code, name: name })
        : await post("/api/rooms", { name: name });
      if (!res.ok) {
        result.textContent = res.data.error || "Erreur";
        return;
      }
      window.location = "/auth/login";
    });
  }

  const start = document.getElementById("startGame");
  if (start) {
    start.addEventListener("click", async () => {
      const res = await post("/api/rooms/" + roomID + "/start");
      if (!res.ok) { alert(res.data.error || "Erreur lors du démarrage de la partie"); }
    });
  }

  const teams = document.getElementById("assignTeams");
  if (teams) {
    teams.addEventListener("click", () => post("/api/rooms/" + roomID + "/teams"));
  }

  const leave = document.getElementById("leaveRoom");
  if (leave) {
    leave.addEventListener("click", async () => {
      await post("/api/session/clear");
      window.location = "/";
    });
  }

  document.querySelectorAll("form.check").forEach((form) => {
    form.addEventListener("submit", async (event) => {
      event.preventDefault();
      const values = (name) => Array.from(form.querySelectorAll("[name=" + name + "]")).map((el) => el.value);
      const payload = {
        answer: form.elements.answer ? form.elements.answer.value : "",
        code: form.elements.code ? form.elements.code.value : "",
        sequence: values("sequence"),
        answers: values("answers"),
        pieces: Array.from(form.querySelectorAll("[name=pieces]:checked")).map((el) => Number(el.value))
      };
      const res = await post("/api/enigmas/" + form.dataset.step + "/check", payload);
      if (res.ok && res.data.correct) {
        window.location = res.data.next;
        return;
      }
      let error = form.querySelector(".error");
      if (!error) {
        error = document.createElement("p");
        error.className = "error";
        form.appendChild(error);
      }
      error.textContent = res.data.message || res.data.error || "Erreur";
      setTimeout(() => { error.textContent = ""; }, 3000);
    });
  });

  const decoder = document.getElementById("decoderForm");
  if (decoder) {
    decoder.addEventListener("submit", async (event) => {
      event.preventDefault();
      const res = await post("/api/decoder", { text: decoder.elements.text.value });
      document.getElementById("decoderOutput").textContent = res.data.decoded || "";
    });
  }

  const timer = document.querySelector(".timer");
  if (timer && timer.dataset.startedAt) {
    const startedAt = Number(timer.dataset.startedAt);
    setInterval(() => {
      const total = Math.max(0, Math.floor((Date.now() - startedAt) / 1000));
      const pad = (n) => String(n).padStart(2, "0");
      timer.textContent = pad(Math.floor(total / 60)) + ":" + pad(total % 60);
    }, 1000);
  }

  if (!roomID) {
    return;
  }
  const scheme = window.location.protocol === "https:" ? "wss://" : "ws://";
  const socket = new WebSocket(scheme + window.location.host + "/ws");

  socket.addEventListener("message", (event) => {
    const msg = JSON.parse(event.data);
    if (msg.type === "session_cleared") {
      window.location = "/";
      return;
    }
    if (msg.type !== "state" || !msg.state) {
      return;
    }
    const state = msg.state;
    if (state.room && state.room.status !== status) {
      status = state.room.status;
      window.location.reload();
      return;
    }
    const players = document.getElementById("players");
    if (players && state.players) {
      players.innerHTML = state.players.map((p) =>
        "<li><span class=\"avatar\" style=\"background:" + escapeHTML(p.color) + "\">" + escapeHTML(p.avatar) + "</span> " +
        escapeHTML(p.name) + (p.is_host ? " <em>hôte</em>" : "") + (p.team ? " <small>" + escapeHTML(p.team) + "</small>" : "") + "</li>"
      ).join("");
      const count = document.getElementById("playerCount");
      if (count) { count.textContent = state.players.length; }
      const startButton = document.getElementById("startGame");
      if (startButton) { startButton.disabled = !state.can_start; }
    }
    const chat = document.getElementById("chatMessages");
    if (chat && state.messages) {
      chat.innerHTML = state.messages.map((m) =>
        "<li><strong style=\"color:" + escapeHTML(m.player_color) + "\">" + escapeHTML(m.player_name) + "</strong> " + escapeHTML(m.message) + "</li>"
      ).join("");
      chat.scrollTop = chat.scrollHeight;
    }
  });

  const chatForm = document.getElementById("chatForm");
  if (chatForm) {
    chatForm.addEventListener("submit", (event) => {
      event.preventDefault();
      const input = chatForm.elements.message;
      const text = input.value.trim();
      if (!text || socket.readyState !== WebSocket.OPEN) {
        return;
      }
      socket.send(JSON.stringify({ type: "chat", message: text }));
      input.value = "";
    });
  }
})();
`
