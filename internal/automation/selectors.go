package automation

// WhatsApp Web selectors. Lists are CSS selector groups so one Exists call
// covers the older and newer DOM variants.
const (
	selQRCanvas   = "canvas"
	selLoggedIn   = "span[data-icon='new-chat-outline'], #wa-popovers-bucket"
	selComposer   = "footer div[contenteditable='true'], div[contenteditable='true'][aria-placeholder='Type a message']"
	selSendButton = "button[aria-label='Send'], span[data-icon='send']"
	selInvalid    = "div[aria-label*='invalid'], div[role='dialog'][data-animate-modal-popup='true']"
	selChatTitle  = "#main header span[dir='auto']"
	selChatPane   = "#pane-side"
)

const sendLinkBase = "https://api.whatsapp.com/send/?phone="

var (
	scriptTextAll = Script{
		Name:   "text_all",
		Source: `(sel) => Array.from(document.querySelectorAll(sel), (el) => (el.innerText || el.textContent || '').trim())`,
	}

	scriptQRData = Script{
		Name:   "qr_data",
		Source: `(sel) => { const c = document.querySelector(sel); return c ? c.toDataURL('image/png') : ''; }`,
	}

	scriptOpenLink = Script{
		Name: "open_link",
		Source: `(href) => {
			const a = document.createElement('a');
			a.href = href;
			a.target = '_blank';
			a.style.display = 'none';
			document.body.appendChild(a);
			setTimeout(() => a.click(), 100);
			setTimeout(() => a.remove(), 2000);
			return true;
		}`,
	}

	scriptDismissInvalid = Script{
		Name: "dismiss_invalid",
		Source: `(sel) => {
			const d = document.querySelector(sel);
			if (!d) return false;
			const btn = Array.from(d.querySelectorAll('button, span, div[role="button"]'))
				.find(el => el.textContent.trim() === 'OK');
			if (btn) { btn.click(); return true; }
			return false;
		}`,
	}

	scriptComposerEmpty = Script{
		Name:   "composer_empty",
		Source: `(sel) => { const c = document.querySelector(sel); return !c || c.innerText.trim().length === 0; }`,
	}

	scriptChatList = Script{
		Name: "chat_list",
		Source: `(pane) => {
			const root = document.querySelector(pane);
			if (!root) return [];
			return Array.from(root.querySelectorAll('div[role="listitem"], div[role="row"]')).map(row => {
				const title = row.querySelector('span[title]');
				const badge = row.querySelector('span[aria-label*="unread"]');
				const last = row.querySelectorAll('span[title]');
				const time = row.querySelector('div[class*="time"]');
				return {
					name: title ? title.getAttribute('title') : '',
					last_message: last.length > 1 ? last[last.length - 1].getAttribute('title') : '',
					unread: badge ? (parseInt(badge.textContent, 10) || 1) : 0,
					time: time ? time.textContent.trim() : '',
				};
			}).filter(c => c.name !== '');
		}`,
	}

	scriptSelectChat = Script{
		Name: "select_chat",
		Source: `(pane, name) => {
			const root = document.querySelector(pane);
			if (!root) return false;
			const title = Array.from(root.querySelectorAll('span[title]'))
				.find(el => el.getAttribute('title') === name);
			if (!title) return false;
			const row = title.closest('div[role="listitem"], div[role="row"]') || title;
			for (const type of ['mousedown', 'mouseup', 'click']) {
				row.dispatchEvent(new MouseEvent(type, { bubbles: true, cancelable: true, view: window }));
			}
			return true;
		}`,
	}

	scriptTranscript = Script{
		Name: "transcript",
		Source: `() => {
			return Array.from(document.querySelectorAll('#main div.message-in, #main div.message-out')).map(el => {
				const meta = el.querySelector('div[data-pre-plain-text]');
				const pre = meta ? meta.getAttribute('data-pre-plain-text') : '';
				const m = pre.match(/^\[([^\]]*)\]\s*([^:]*):/);
				const text = el.querySelector('span.selectable-text');
				return {
					sender: m ? m[2].trim() : '',
					time: m ? m[1].trim() : '',
					text: text ? text.innerText : '',
					inbound: el.classList.contains('message-in'),
				};
			}).filter(m => m.text !== '');
		}`,
	}
)
