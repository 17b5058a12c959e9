package web

import "escape-rose/internal/enigma"

type section func(h *html, data PageData)

// content picks the title and body for a page path.
func content(path string) (string, section) {
	switch path {
	case "/auth/login", "/lobby":
		return "Salle d'attente", lobbyBody
	case "/briefing":
		return "Briefing", briefingBody
	case "/enigme-1":
		return "Énigme 1 : Le Livre", bookCipherBody
	case "/enigme-1/livre":
		return "Le Livre", bookBody
	case "/enigme-2":
		return "Énigme 2 : Double Mission", missionBody
	case "/enigme-2/labo":
		return "Mission Labo", labBody
	case "/enigme-2/oncopole":
		return "Mission Oncopole", oncopoleBody
	case "/enigme-2/reunion":
		return "Mission accomplie", meetingBody
	case "/enigme-3":
		return "Énigme 3 : La Carte", mapBody
	case "/enigme-4":
		return "Énigme 4 : L'Herboriste", plantBody
	case "/finale":
		return "Finale", finaleBody
	}
	return "Accueil", homeBody
}

func homeBody(h *html, data PageData) {
	h.raw(`      <header class="hero">
        <span class="tag">Escape game</span>
        <h1>Plante Rose</h1>
        <p>Un professeur a disparu en laissant ses recherches derrière lui. Retrouvez la plante qu'il étudiait.</p>
      </header>
      <section class="panel">
        <form id="homeForm" class="join-form">
          <input name="name" placeholder="Votre nom" maxlength="20" autocomplete="name" required/>
          <button type="submit" name="action" value="create" class="primary">Créer une partie</button>
          <input name="code" placeholder="Code de partie" maxlength="6" autocomplete="off" value="`, attr(data.Code), `"/>
          <button type="submit" name="action" value="join" class="secondary">Rejoindre</button>
        </form>
        <div id="homeResult" class="result"></div>
      </section>
`)
}

func lobbyBody(h *html, data PageData) {
	h.raw(`      <section class="panel">
        <h1>Salle d'attente</h1>
        <p>Code de la partie : <strong class="code">`)
	h.text(data.RoomCode)
	h.raw(`</strong></p>
        <img class="qr" alt="QR code" src="/api/rooms/`, attr(data.RoomID), `/qr.png"/>
        <p class="join-url">`)
	h.text(data.JoinURL)
	h.raw(`</p>
        <h2>Joueurs (<span id="playerCount">`, itoa(len(data.Players)), `</span>/`, itoa(data.MaxPlayers), `)</h2>
`)
	playerList(h, data.Players)
	if data.IsHost {
		disabled := ""
		if !data.CanStart {
			disabled = " disabled"
		}
		h.raw(`        <button id="startGame" class="primary"`, disabled, `>Démarrer la partie</button>
        <p class="hint">Il faut entre `, itoa(data.MinPlayers), ` et `, itoa(data.MaxPlayers), ` joueurs.</p>
`)
	} else {
		h.raw("        <p class=\"hint\">En attente de l'hôte...</p>\n")
	}
	h.raw(`        <button id="leaveRoom" class="secondary">Quitter</button>
      </section>
`)
}

func briefingBody(h *html, _ PageData) {
	h.raw(`      <section class="panel story">
        <h1>Briefing</h1>
        <p>Si vous lisez ce message, c'est que j'ai dû disparaître pour mettre mes recherches en sécurité. Mais j'ai besoin de votre aide.</p>
        <p>Pendant des années, j'ai étudié une plante extraordinaire, capable de contribuer à la guérison d'une terrible maladie. Cette découverte ne doit pas rester cachée.</p>
        <p>J'ai consigné mes recherches dans mon dernier ouvrage, mais son titre est codé pour le protéger.</p>
        <a class="button primary" href="/enigme-1">Résoudre l'énigme</a>
      </section>
`)
}

func bookCipherBody(h *html, data PageData) {
	h.raw(`      <section class="panel">
        <h1>Énigme 1 : Le Livre</h1>
        <p>Le titre codé du livre :</p>
        <p class="cipher">`)
	h.text(data.Encoded)
	h.raw(`</p>
        <form class="check" data-step="`, enigma.StepBook, `">
          <input name="answer" placeholder="Titre du livre" autocomplete="off" required/>
          <button type="submit" class="primary">Valider</button>
        </form>
        <details>
          <summary>Décodeur (chiffre de César)</summary>
          <form id="decoderForm">
            <input name="text" placeholder="Texte à décoder" autocomplete="off"/>
            <button type="submit">Décoder</button>
          </form>
          <p id="decoderOutput" class="cipher"></p>
        </details>
      </section>
`)
}

func bookBody(h *html, _ PageData) {
	h.raw(`      <section class="panel story">
        <h1>Les Plantes de la Ville Rose</h1>
        <p>« Si vous lisez ces mots, c'est que vous avez réussi la première étape. Bravo. »</p>
        <p>Avant de connaître le remède, il faut comprendre la maladie. La réponse se trouve dans deux lieux emblématiques de Toulouse : le laboratoire de recherches et l'Oncopole. Divisez-vous en deux équipes.</p>
        <p class="hint">« Le mois d'octobre cache un secret rose... »</p>
        <a class="button primary" href="/enigme-2">Continuer vers l'énigme 2</a>
      </section>
`)
}

func missionBody(h *html, data PageData) {
	h.raw(`      <section class="panel">
        <h1>Énigme 2 : Double Mission</h1>
        <p>Chaque équipe a une mission différente mais complémentaire. Les deux codes sont nécessaires au déverrouillage final.</p>
`)
	playerList(h, data.Players)
	h.raw(`        <button id="assignTeams" class="secondary">Former les équipes</button>
        <div class="teams">
          <a class="button primary" href="/enigme-2/labo">Mission Labo</a>
          <a class="button primary" href="/enigme-2/oncopole">Mission Oncopole</a>
        </div>
        <a class="button secondary" href="/enigme-2/reunion">Réunir les équipes</a>
      </section>
`)
}

func labBody(h *html, _ PageData) {
	h.raw(`      <section class="panel">
        <h1>Mission Labo</h1>
        <p>Reconstituez la séquence ADN à partir des échantillons, puis saisissez le code de la salle de réunion.</p>
        <form class="check" data-step="`, enigma.StepLab, `">
`)
	for i := range enigma.LabSequence {
		h.raw(`          <input name="sequence" maxlength="4" placeholder="Séquence `, itoa(i+1), `" autocomplete="off" required/>
`)
	}
	h.raw(`          <input name="code" maxlength="4" placeholder="Code" autocomplete="off" required/>
          <button type="submit" class="primary">Valider</button>
        </form>
      </section>
`)
}

func oncopoleBody(h *html, _ PageData) {
	h.raw(`      <section class="panel">
        <h1>Mission Oncopole</h1>
        <form class="check" data-step="`, enigma.StepOncopole, `">
          <label>Quel organe est concerné ? <input name="answers" autocomplete="off" required/></label>
          <label>Quel mois est dédié à la sensibilisation ? <input name="answers" autocomplete="off" required/></label>
          <label>Quelle couleur symbolise la campagne ? <input name="answers" autocomplete="off" required/></label>
          <input name="code" maxlength="4" placeholder="Code" autocomplete="off" required/>
          <button type="submit" class="primary">Valider</button>
        </form>
      </section>
`)
}

func meetingBody(h *html, _ PageData) {
	h.raw(`      <section class="panel story">
        <h1>Mission accomplie !</h1>
        <p>« Excellent travail ! Vous avez compris que je cherchais un remède naturel pour contribuer à la lutte contre le cancer du sein. Mais où se trouve cette plante mystérieuse ? »</p>
        <p class="hint">« Sous les platanes anciens, au cœur de la ville rose, la nature cache ses remèdes à qui sait écouter... »</p>
        <a class="button primary" href="/enigme-3">Continuer vers l'énigme 3</a>
      </section>
`)
}

func mapBody(h *html, _ PageData) {
	h.raw(`      <section class="panel">
        <h1>Énigme 3 : La Carte</h1>
        <form class="check" data-step="`, enigma.StepMap, `">
          <div class="map">
`)
	for _, piece := range enigma.Pieces {
		h.raw(`            <label class="piece `, attr(piece.Position), `"><input type="checkbox" name="pieces" value="`, itoa(piece.ID), `"/> `)
		h.text(piece.Clue)
		h.raw("</label>\n")
	}
	h.raw(`          </div>
          <input name="answer" placeholder="Lieu" autocomplete="off" required/>
          <button type="submit" class="primary">Valider</button>
        </form>
      </section>
`)
}

func plantBody(h *html, _ PageData) {
	h.raw(`      <section class="panel">
        <h1>Énigme 4 : L'Herboriste</h1>
        <p>Observez le dessin de l'herboriste et retrouvez le nom latin de la plante.</p>
        <form class="check" data-step="`, enigma.StepPlant, `">
          <input name="answer" placeholder="Nom de la plante" autocomplete="off" required/>
          <button type="submit" class="primary">Valider</button>
        </form>
      </section>
`)
}

func finaleBody(h *html, data PageData) {
	h.raw(`      <section class="panel story">
        <h1>Le Taxus baccata</h1>
        <p>« Vous avez percé le mystère. Cette plante ancestrale, que l'on trouve ici même au Jardin des Plantes de Toulouse, cache en elle un trésor de la médecine moderne. »</p>
        <p>Chaque année en octobre, le monde entier se mobilise pour le dépistage et la recherche contre le cancer du sein.</p>
`)
	if len(data.Times) > 0 {
		h.raw("        <table class=\"times\">\n")
		for _, row := range data.Times {
			h.raw("          <tr><th>")
			h.text(row.Label)
			h.raw("</th><td>")
			h.text(row.Duration)
			h.raw("</td></tr>\n")
		}
		h.raw("          <tr class=\"total\"><th>Total</th><td>")
		h.text(data.TotalTime)
		h.raw("</td></tr>\n        </table>\n")
	}
	h.raw(`        <button id="leaveRoom" class="primary">Recommencer l'aventure</button>
      </section>
`)
}
