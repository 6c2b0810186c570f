package sqlinline

const QFindOrCreateConversation = `--sql 6495d690-b4eb-438d-87fe-dbd843a490fd
insert into conversations (participant_a, participant_b, project_id)
values ($1::uuid, $2::uuid, nullif($3::text, '')::uuid)
on conflict (participant_a, participant_b) do update set participant_a = excluded.participant_a
returning id::text, participant_a::text, participant_b::text, coalesce(project_id::text, ''),
  last_message_at, last_message_preview, created_at;
`

const QSelectConversationByID = `--sql d5164298-c248-477d-9460-27df9564b707
select id::text, participant_a::text, participant_b::text, coalesce(project_id::text, ''),
  last_message_at, last_message_preview, created_at
from conversations
where id = $1::uuid
limit 1;
`

const QListConversationsForUser = `--sql e8138fcd-d2ce-4fd5-b02c-c0c53c0cd3b6
select c.id::text, c.participant_a::text, c.participant_b::text, coalesce(c.project_id::text, ''),
  c.last_message_at, c.last_message_preview, c.created_at,
  o.id::text, o.email, o.name, o.avatar_url, o.role,
  coalesce(o.ngo_profile->>'org_name', ''),
  coalesce(o.ngo_profile->>'logo_url', ''),
  coalesce((o.ngo_profile->>'verified')::boolean, false),
  (select count(*) from messages m
    where m.conversation_id = c.id and m.sender_id <> $1::uuid and m.read_at is null) as unread
from conversations c
join users o on o.id = case when c.participant_a = $1::uuid then c.participant_b else c.participant_a end
where c.participant_a = $1::uuid or c.participant_b = $1::uuid
order by coalesce(c.last_message_at, c.created_at) desc
limit nullif($2::int, 0) offset $3::int;
`

const QInsertMessage = `--sql c2a355a9-91ac-4474-beb7-1ec729776dc4
with inserted as (
  insert into messages (conversation_id, sender_id, body)
  values ($1::uuid, $2::uuid, $3::text)
  returning id, created_at
), touched as (
  update conversations
  set last_message_at = (select created_at from inserted),
      last_message_preview = $4::text
  where id = $1::uuid
)
select id::text, created_at
from inserted;
`

const QListMessages = `--sql 284c7b97-e1d7-4bdf-9eb2-918562e3c8b2
select id::text, conversation_id::text, sender_id::text, body, read_at, created_at
from messages
where conversation_id = $1::uuid
  and ($2::timestamptz is null or created_at < $2::timestamptz)
order by created_at desc
limit $3::int;
`

const QMarkMessagesRead = `--sql d859880d-3c6a-4295-b7ca-f40f77a57703
update messages
set read_at = $3::timestamptz
where conversation_id = $1::uuid
  and sender_id <> $2::uuid
  and read_at is null;
`

const QCountUnreadMessages = `--sql 6f861a8f-c234-4c67-9893-dfcd96cd27ab
select count(*)
from messages m
join conversations c on c.id = m.conversation_id
where (c.participant_a = $1::uuid or c.participant_b = $1::uuid)
  and m.sender_id <> $1::uuid
  and m.read_at is null;
`
