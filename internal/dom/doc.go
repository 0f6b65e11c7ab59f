/*
Package dom models the hosting page's content elements and is the only
place an iframe document is written.

# Overview

A Document is parsed from server-rendered markup with goquery. Every element
carrying both an id and a data attribute is a content element:

	<iframe id="note-1" public="1" data="aGVsbG8="></iframe>
	<iframe id="note-2" data="<nonce>:<ciphertext>"></iframe>

The hosting page mounts and updates elements through Upsert. Readers get
snapshots, never live elements, so the render pipeline cannot mutate
attributes behind the document's lock.

# Injection

The srcdoc setter is unexported. Injector is the single path from plaintext
to a document: normalize, sanitize, verify inert, write. Every step fails
closed and leaves the iframe blank.
*/
package dom
