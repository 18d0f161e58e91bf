/*
Package templating renders text/template documents whose content is drawn from
a markov.Model. Templates call functions such as text and paragraphs to pull
generated prose into an arbitrary layout, with safety limits on how much text a
single call may request.
*/
package templating
